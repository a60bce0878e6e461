package arbitration

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/identity"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/matching"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/textutil"
)

// CheckIdentity reports whether id's name is meaningful enough for an oracle
// call, and why not when it is not.
func CheckIdentity(id identity.Identity, policy matching.Policy) (bool, string) {
	name := strings.TrimSpace(id.PrimaryName)
	if n := utf8.RuneCountInString(name); n < policy.MinNameLength {
		return false, fmt.Sprintf("name %q shorter than %d characters", name, policy.MinNameLength)
	}
	if textutil.IsNumeric(name) {
		return false, fmt.Sprintf("name %q is numeric", name)
	}
	if ratio := textutil.AlphaRatio(name); !matching.AtLeast(ratio, policy.MinAlphaRatio) {
		return false, fmt.Sprintf("name %q alphabetic ratio %.2f below %.2f", name, ratio, policy.MinAlphaRatio)
	}
	return true, ""
}
