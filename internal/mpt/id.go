package mpt

import (
	"fmt"
	"strings"
)

// ValidateAgreementID checks the AGR- prefix convention.
func ValidateAgreementID(id string) error {
	if !strings.HasPrefix(id, "AGR-") {
		return fmt.Errorf("invalid agreement ID %q: must start with AGR- (e.g. AGR-1234-5678-9012)", id)
	}
	return nil
}

// ValidateListingID checks the LST- prefix convention.
func ValidateListingID(id string) error {
	if !strings.HasPrefix(id, "LST-") {
		return fmt.Errorf("invalid listing ID %q: must start with LST- (e.g. LST-9279-6638)", id)
	}
	return nil
}

// ValidateLicenseeID checks the LCE- prefix convention.
func ValidateLicenseeID(id string) error {
	if !strings.HasPrefix(id, "LCE-") {
		return fmt.Errorf("invalid licensee ID %q: must start with LCE- (e.g. LCE-1234-5678-9012)", id)
	}
	return nil
}
