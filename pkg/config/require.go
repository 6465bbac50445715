package config

import (
	"errors"
	"fmt"
)

// Missing collects the names of required settings that are empty.
type Missing []string

func (m *Missing) NonEmpty(value, envName string) {
	if value == "" {
		*m = append(*m, envName)
	}
}

func (m *Missing) NonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		*m = append(*m, envName)
	}
}

func (m Missing) Err() error {
	if len(m) == 0 {
		return nil
	}
	errs := make([]error, 0, len(m))
	for _, name := range m {
		errs = append(errs, fmt.Errorf("missing required env %s", name))
	}
	return errors.Join(errs...)
}
