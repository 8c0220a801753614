package service

import (
	"crypto/sha256"
	"encoding/binary"
	"regexp"
	"strings"

	"github.com/vanshika/creditscore/internal/domain"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	nonDigitRegex   = regexp.MustCompile(`\D+`)
)

// normalizeMobile keeps the last ten digits, dropping country prefixes and
// punctuation.
func normalizeMobile(mobile string) string {
	digits := nonDigitRegex.ReplaceAllString(mobile, "")
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

func maskMobile(mobile string) string {
	digits := normalizeMobile(mobile)
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// derivedProfile builds a stable synthetic bureau profile for applicants
// without a bureau record. The same PAN always yields the same profile.
func derivedProfile(pan string) domain.BureauRecord {
	sum := sha256.Sum256([]byte(domain.NormalizePAN(pan)))

	delinquencies := 0
	switch {
	case sum[1] >= 245:
		delinquencies = 3
	case sum[1] >= 220:
		delinquencies = 2
	case sum[1] >= 170:
		delinquencies = 1
	}

	return domain.BureauRecord{
		OpenAccounts:      1 + int(sum[0]%9),
		Delinquencies:     delinquencies,
		CreditUtilization: float64(sum[2]) / 255 * 0.9,
		HardEnquiries:     int(sum[3] % 6),
		OldestAccountAge:  6 + int(binary.BigEndian.Uint16(sum[4:6])%234),
	}
}
