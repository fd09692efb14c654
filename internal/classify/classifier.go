// Package classify decides whether a document belongs to the target class
// by asking a language model a yes/no question about its text.
package classify

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"intake/internal/logger"
)

// Classifier returns the model's free-text verdict for a document.
type Classifier interface {
	Classify(ctx context.Context, documentText, prompt string) (string, error)
}

// Decision is the gated outcome for one document.
type Decision struct {
	IsTarget bool
	Verdict  string
	// Err is set when the classifier call failed. IsTarget is then false.
	Err error
}

// Service applies the classification gate to a Classifier.
type Service struct {
	classifier Classifier
	prompt     string
	log        zerolog.Logger
}

func NewService(classifier Classifier, prompt string) *Service {
	return &Service{
		classifier: classifier,
		prompt:     prompt,
		log:        logger.WithComponent("classifier"),
	}
}

// Decide classifies one document. A document without text is a non-target
// and the classifier is not called. A failed call is logged and reported as a
// non-target decision carrying the error so callers can retry the document.
func (s *Service) Decide(ctx context.Context, name, documentText string) Decision {
	const op = "Decide"

	if strings.TrimSpace(documentText) == "" {
		s.log.Info().
			Str("document", name).
			Bool("is_target", false).
			Msg("Document has no text, classified as non-target")
		return Decision{}
	}

	verdict, err := s.classifier.Classify(ctx, documentText, s.prompt)
	if err != nil {
		err = WrapClassificationError(op, err, name)
		s.log.Error().
			Err(err).
			Str("document", name).
			Msg("Classification failed")
		return Decision{Err: err}
	}

	d := Decision{IsTarget: IsTargetDocument(verdict), Verdict: verdict}
	s.log.Info().
		Str("document", name).
		Bool("is_target", d.IsTarget).
		Msg("Document classified")
	return d
}
