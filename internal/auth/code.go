package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// CodeLength is the number of digits in a verification code
const CodeLength = 6

// Code generation modes
const (
	CodeModeBypass = "bypass"
	CodeModeRandom = "random"
)

// CodeGenerator produces the verification code for a phone number
type CodeGenerator interface {
	Generate(phone string) (string, error)
}

// DerivingCodeGenerator is implemented by generators whose code can be
// recomputed from the phone alone, without a stored record.
type DerivingCodeGenerator interface {
	CodeGenerator
	Derive(phone string) string
}

// NewCodeGenerator returns the generator for a configured mode
func NewCodeGenerator(mode string) (CodeGenerator, error) {
	switch mode {
	case CodeModeBypass:
		return DeterministicCodeGenerator{}, nil
	case CodeModeRandom:
		return RandomCodeGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown code mode %q", mode)
	}
}

// DeterministicCodeGenerator uses the last six digits of the phone number,
// left-padded with zeros for shorter numbers. Only for development and test
// deployments.
type DeterministicCodeGenerator struct{}

func (DeterministicCodeGenerator) Generate(phone string) (string, error) {
	return DeterministicCodeGenerator{}.Derive(phone), nil
}

func (DeterministicCodeGenerator) Derive(phone string) string {
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) >= CodeLength {
		return digits[len(digits)-CodeLength:]
	}
	return strings.Repeat("0", CodeLength-len(digits)) + digits
}

// RandomCodeGenerator draws uniformly from 000000-999999 using crypto/rand
type RandomCodeGenerator struct{}

var codeSpace = big.NewInt(1_000_000)

func (RandomCodeGenerator) Generate(string) (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
