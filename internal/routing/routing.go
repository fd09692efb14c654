// Package routing decides where a processed document goes next.
package routing

import (
	"fmt"
	"strings"
)

// Outcome is the processing result of one document.
type Outcome int

const (
	SucceededWithData Outcome = iota
	SucceededNoData
	ClassifiedTarget
	ClassifiedNonTarget
	UnsupportedFormat
	ProcessingError
)

var outcomeNames = map[Outcome]string{
	SucceededWithData:   "succeeded-with-data",
	SucceededNoData:     "succeeded-no-data",
	ClassifiedTarget:    "classified-target",
	ClassifiedNonTarget: "classified-non-target",
	UnsupportedFormat:   "unsupported-format",
	ProcessingError:     "processing-error",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Destination is where a document or its artifacts end up.
type Destination string

const (
	Archive          Destination = "archive"
	Review           Destination = "review"
	StagingUnchanged Destination = "staging-unchanged"
	Discard          Destination = "discard"
)

// NoDataPolicy chooses the destination of target documents without any
// extracted attributes.
type NoDataPolicy string

const (
	NoDataArchive NoDataPolicy = "archive"
	NoDataReview  NoDataPolicy = "review"
)

// ParseNoDataPolicy accepts "archive" or "review" in any case.
func ParseNoDataPolicy(s string) (NoDataPolicy, error) {
	switch p := NoDataPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case NoDataArchive, NoDataReview:
		return p, nil
	case "":
		return NoDataArchive, nil
	}
	return "", fmt.Errorf("unknown no-data policy %q", s)
}

// Decision says where the source document and its derived artifacts go.
type Decision struct {
	Source    Destination
	Artifacts Destination
}

// Decide applies the routing table:
//
//	unsupported format      -> review, artifacts discarded
//	processing error        -> left in staging, artifacts kept
//	target / with data      -> archive, artifacts discarded
//	non-target              -> review, artifacts discarded
//	no data                 -> per policy, artifacts discarded
func Decide(outcome Outcome, policy NoDataPolicy) Decision {
	switch outcome {
	case UnsupportedFormat:
		return Decision{Source: Review, Artifacts: Discard}
	case ProcessingError:
		return Decision{Source: StagingUnchanged, Artifacts: StagingUnchanged}
	case ClassifiedTarget, SucceededWithData:
		return Decision{Source: Archive, Artifacts: Discard}
	case ClassifiedNonTarget:
		return Decision{Source: Review, Artifacts: Discard}
	case SucceededNoData:
		if policy == NoDataReview {
			return Decision{Source: Review, Artifacts: Discard}
		}
		return Decision{Source: Archive, Artifacts: Discard}
	}
	// Unknown outcomes are not moved.
	return Decision{Source: StagingUnchanged, Artifacts: StagingUnchanged}
}
