package service

import (
	"strings"

	"github.com/geoforest/licensing/pkg/cryptox"
)

// DelegationCodeLength is the number of characters in a delegation code.
// 36^6 codes are plenty against a rate limited redeem endpoint.
const DelegationCodeLength = 6

// KeyGenerator produces delegation codes. It does not promise uniqueness.
type KeyGenerator interface {
	Generate() (string, error)
}

// CodeGenerator draws codes from A-Z0-9 with crypto/rand.
type CodeGenerator struct{}

func (CodeGenerator) Generate() (string, error) {
	return cryptox.GenerateCode(DelegationCodeLength, cryptox.CodeAlphabet)
}

// NormalizeCode trims and upper-cases user input so "  a1b2c3 " and
// "A1B2C3" name the same offer.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
