package suppliers

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid indicates supplier input that fails business validation.
var ErrInvalid = errors.New("suppliers: invalid input")

func (s *Service) validate(sup Supplier) error {
	if strings.TrimSpace(sup.Code) == "" {
		return fmt.Errorf("%w: supplier code is required", ErrInvalid)
	}
	if strings.TrimSpace(sup.Name) == "" {
		return fmt.Errorf("%w: supplier name is required", ErrInvalid)
	}
	return nil
}
