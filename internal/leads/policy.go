package leads

import "github.com/aldoetobex/leadhub-backend/pkg/models"

// Funnel order of the main path. Off-path states (not_interested, invalid,
// nurturing) are handled separately.
var funnelNext = map[models.LeadStatus]models.LeadStatus{
	models.LeadNew:           models.LeadContacted,
	models.LeadContacted:     models.LeadQualified,
	models.LeadQualified:     models.LeadDemoScheduled,
	models.LeadDemoScheduled: models.LeadProposalSent,
	models.LeadProposalSent:  models.LeadConverted,
}

var mainPath = map[models.LeadStatus]bool{
	models.LeadNew:           true,
	models.LeadContacted:     true,
	models.LeadQualified:     true,
	models.LeadDemoScheduled: true,
	models.LeadProposalSent:  true,
	models.LeadConverted:     true,
}

// AutoTransition applies the call-outcome rule: it fires only while the lead
// is still "new". interested qualifies the lead, demo_scheduled books it,
// any other recorded outcome marks it contacted. A nil outcome (call ended
// without a selection) never transitions. The second return reports whether
// a transition happened.
func AutoTransition(current models.LeadStatus, outcome *models.CallOutcome) (models.LeadStatus, bool) {
	if current != models.LeadNew || outcome == nil {
		return current, false
	}
	switch *outcome {
	case models.OutcomeInterested:
		return models.LeadQualified, true
	case models.OutcomeDemoScheduled:
		return models.LeadDemoScheduled, true
	default:
		return models.LeadContacted, true
	}
}

// CanTransition reports whether a manual move from one status to another is
// allowed:
//   - one step forward along the funnel
//   - to not_interested or invalid from any non-terminal state
//   - to nurturing from any non-terminal state
//   - from nurturing back onto any non-terminal main-path state
//
// Terminal states (converted, not_interested, invalid) accept no moves.
func CanTransition(from, to models.LeadStatus) bool {
	if from.Terminal() || from == to {
		return false
	}
	if to == models.LeadNotInterested || to == models.LeadInvalid || to == models.LeadNurturing {
		return true
	}
	if from == models.LeadNurturing {
		// Re-enter the funnel anywhere short of converted.
		return mainPath[to] && to != models.LeadConverted
	}
	return funnelNext[from] == to
}
