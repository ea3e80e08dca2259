package proof

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"raincast/internal/types"
)

// exifTimeLayout is the timestamp format EXIF embeds: "2026:08:28 14:03:59".
const exifTimeLayout = "2006:01:02 15:04:05"

// Validator classifies the freshness of photographic proof.
//
// Policy: same-day check. A proof captured on the same UTC calendar day as
// the submission is Genuine; an older capture is OldProof. The claim is
// persisted under either label, preserving an auditable record instead of
// silently dropping stale submissions.
type Validator struct {
	clock clockwork.Clock
}

// NewValidator creates a Validator. A nil clock falls back to the real
// clock; tests inject a fake for deterministic freshness checks.
func NewValidator(clock clockwork.Clock) *Validator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Validator{clock: clock}
}

// Validate inspects already-loaded proof image bytes and returns an
// authenticity verdict. It is a pure function over the supplied bytes: no
// filesystem access, no side effects, and it never panics past this
// boundary regardless of how malformed the input is.
func (v *Validator) Validate(imageBytes []byte) types.AuthenticityVerdict {
	raw, err := extractCaptureTimestamp(imageBytes)
	if err != nil {
		if errors.Is(err, errNoTimestamp) {
			return types.AuthenticityVerdict{
				Label:  types.TrustMetadataMissing,
				Detail: "no capture timestamp found in image metadata",
			}
		}
		return types.AuthenticityVerdict{
			Label:  types.TrustMetadataError,
			Detail: fmt.Sprintf("image metadata unreadable: %v", err),
		}
	}

	captureTime, err := time.ParseInLocation(exifTimeLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return types.AuthenticityVerdict{
			Label:  types.TrustMetadataError,
			Detail: fmt.Sprintf("capture timestamp %q does not match the expected format", raw),
		}
	}

	now := v.clock.Now().UTC()
	cy, cm, cd := captureTime.Date()
	ny, nm, nd := now.Date()
	if cy == ny && cm == nm && cd == nd {
		return types.AuthenticityVerdict{
			Label:       types.TrustGenuine,
			CaptureTime: captureTime,
			Detail:      "proof captured today",
		}
	}
	return types.AuthenticityVerdict{
		Label:       types.TrustOldProof,
		CaptureTime: captureTime,
		Detail:      fmt.Sprintf("proof captured on %s, not today", captureTime.Format("2006-01-02")),
	}
}
