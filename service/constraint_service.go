package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/internal/parser"
)

// checkInput is what every checker sees: the shared tree, the raw source
// and the constraint set being enforced
type checkInput struct {
	tree   *parser.Node
	source []byte
	cs     domain.ConstraintSet
}

// checkOutcome is the result of one checker. A checker whose constraint is
// unset reports Ran=false and contributes nothing.
type checkOutcome struct {
	Ran        bool
	MetricKey  string
	Value      any
	Violations []string
}

type checker struct {
	Name string
	Run  func(*checkInput) checkOutcome
}

// ConstraintServiceImpl implements domain.ConstraintService
type ConstraintServiceImpl struct {
	logger *slog.Logger
}

// NewConstraintService creates a constraint service. A nil logger discards output.
func NewConstraintService(logger *slog.Logger) *ConstraintServiceImpl {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ConstraintServiceImpl{logger: logger}
}

// Evaluate checks source against a single constraint set. Source is parsed
// only when at least one constraint is enabled.
func (s *ConstraintServiceImpl) Evaluate(ctx context.Context, source []byte, cs domain.ConstraintSet) (*domain.ConstraintResult, error) {
	if cs.IsEmpty() {
		return domain.NewConstraintResult(nil, domain.Metrics{}), nil
	}

	tree, err := parseSource(ctx, source)
	if err != nil {
		return nil, err
	}
	return s.evaluateTree(ctx, tree, source, cs)
}

// Check runs the primary gate and, only when it passes, the secondary gate.
// A failed primary yields a vacuous passing secondary.
func (s *ConstraintServiceImpl) Check(ctx context.Context, source []byte, tc domain.TaskConstraints) (*domain.ConstraintResult, *domain.ConstraintResult, error) {
	var tree *parser.Node
	if !tc.Primary.IsEmpty() || !tc.Secondary.IsEmpty() {
		parsed, err := parseSource(ctx, source)
		if err != nil {
			return nil, nil, err
		}
		tree = parsed
	}

	primary, err := s.evaluateTree(ctx, tree, source, tc.Primary)
	if err != nil {
		return nil, nil, err
	}
	if !primary.Passed {
		s.logger.Debug("primary gate failed, skipping secondary",
			slog.Int("violations", len(primary.Violations)))
		return primary, domain.NewConstraintResult(nil, domain.Metrics{}), nil
	}

	secondary, err := s.evaluateTree(ctx, tree, source, tc.Secondary)
	if err != nil {
		return nil, nil, err
	}
	return primary, secondary, nil
}

// EvaluateTree checks an already parsed module
func EvaluateTree(tree *parser.Node, source []byte, cs domain.ConstraintSet) *domain.ConstraintResult {
	result, _ := runCheckers(context.Background(), nil, tree, source, cs)
	return result
}

func (s *ConstraintServiceImpl) evaluateTree(ctx context.Context, tree *parser.Node, source []byte, cs domain.ConstraintSet) (*domain.ConstraintResult, error) {
	return runCheckers(ctx, s.logger, tree, source, cs)
}

// runCheckers folds every enabled checker over the tree in registry order
func runCheckers(ctx context.Context, logger *slog.Logger, tree *parser.Node, source []byte, cs domain.ConstraintSet) (*domain.ConstraintResult, error) {
	violations := []string{}
	metrics := domain.Metrics{}
	if cs.IsEmpty() || tree == nil {
		return domain.NewConstraintResult(violations, metrics), nil
	}

	in := &checkInput{tree: tree, source: source, cs: cs}
	for _, c := range checkers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("constraint evaluation cancelled: %w", err)
		}
		outcome := c.Run(in)
		if !outcome.Ran {
			continue
		}
		if logger != nil {
			logger.Debug("checker ran",
				slog.String("checker", c.Name),
				slog.Int("violations", len(outcome.Violations)))
		}
		metrics[outcome.MetricKey] = outcome.Value
		violations = append(violations, outcome.Violations...)
	}
	return domain.NewConstraintResult(violations, metrics), nil
}

// parseSource parses source, mapping syntax errors to PARSE_ERROR
func parseSource(ctx context.Context, source []byte) (*parser.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("constraint evaluation cancelled: %w", err)
	}
	tree, err := parser.ParseSource(ctx, "<source>", source)
	if err != nil {
		if errors.Is(err, parser.ErrSyntax) {
			return nil, domain.NewParseError("<source>", err)
		}
		return nil, domain.NewAnalysisError("failed to parse source", err)
	}
	return tree, nil
}
