package types

// TrustLabel is the current verification status of an observation's claim.
// It starts at Pending, moves to a validator verdict when a claim with proof
// is attached, and can later be promoted or demoted by community votes.
type TrustLabel string

const (
	TrustPending           TrustLabel = "Pending"
	TrustGenuine           TrustLabel = "Genuine"
	TrustOldProof          TrustLabel = "OldProof"
	TrustMetadataMissing   TrustLabel = "MetadataMissing"
	TrustMetadataError     TrustLabel = "MetadataError"
	TrustCommunityVerified TrustLabel = "CommunityVerified"
	TrustCommunityRejected TrustLabel = "CommunityRejected"
)

// IsValid reports whether the label is one of the known trust labels.
func (t TrustLabel) IsValid() bool {
	switch t {
	case TrustPending, TrustGenuine, TrustOldProof, TrustMetadataMissing,
		TrustMetadataError, TrustCommunityVerified, TrustCommunityRejected:
		return true
	}
	return false
}

// VoteDirection identifies which counter a community vote increments.
type VoteDirection string

const (
	VoteSupport VoteDirection = "support"
	VoteOppose  VoteDirection = "oppose"
)

// IsValid reports whether the direction is a known vote direction.
func (d VoteDirection) IsValid() bool {
	return d == VoteSupport || d == VoteOppose
}

// SwarmState describes the aggregate state of a pending consensus entry.
type SwarmState string

const (
	// SwarmClear means no active swarm exists for the location (either none
	// was ever started, or the previous one idled past its TTL).
	SwarmClear SwarmState = "clear"
	// SwarmCounting means reports are accumulating but the alert threshold
	// has not been reached yet.
	SwarmCounting SwarmState = "counting"
	// SwarmVerified means enough corroborating reports arrived within the
	// TTL window to treat the claim as peer-verified.
	SwarmVerified SwarmState = "verified"
)

// AdvisoryMode selects the audience for derived advisory text.
type AdvisoryMode string

const (
	ModeStandard     AdvisoryMode = "standard"
	ModeFarmer       AdvisoryMode = "farmer"
	ModeConstruction AdvisoryMode = "construction"
)

// IsValid reports whether the mode is one of the known advisory modes.
func (m AdvisoryMode) IsValid() bool {
	switch m {
	case ModeStandard, ModeFarmer, ModeConstruction:
		return true
	}
	return false
}
