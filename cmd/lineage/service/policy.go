package service

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/qefaraki/lineage/common/models"
)

// Policy is a deployment-level hook that can tighten the outcome of
// the permission chain. The expression is compiled once at startup and
// evaluated per decision with the actor, the target and the computed
// level in scope. It can only downgrade: a policy that returns a level
// ranked above the chain's answer is ignored.
type Policy struct {
	program cel.Program
}

// NewPolicy compiles a CEL expression into a policy. The expression
// must evaluate to one of the level strings ("full", "suggest",
// "blocked", "none"). An empty expression yields a nil policy.
func NewPolicy(expr string) (*Policy, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("actor", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("target", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("level", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create policy env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile policy: %w", issues.Err())
	}
	if ast.OutputType() != cel.StringType {
		return nil, fmt.Errorf("policy must return a string level, got %s", ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build policy program: %w", err)
	}
	return &Policy{program: program}, nil
}

// Apply evaluates the policy and returns the possibly-downgraded level.
func (p *Policy) Apply(ctx context.Context, actor, target *models.Person, level models.PermissionLevel) (models.PermissionLevel, error) {
	out, _, err := p.program.ContextEval(ctx, map[string]any{
		"actor":  personVars(actor),
		"target": personVars(target),
		"level":  string(level),
	})
	if err != nil {
		return level, fmt.Errorf("eval policy: %w", err)
	}
	name, ok := out.Value().(string)
	if !ok {
		return level, fmt.Errorf("policy returned %T, want string", out.Value())
	}
	adjusted := models.PermissionLevel(name)
	switch adjusted {
	case models.LevelFull, models.LevelSuggest, models.LevelBlocked, models.LevelNone:
	default:
		return level, fmt.Errorf("policy returned unknown level %q", name)
	}
	if adjusted.Rank() >= level.Rank() {
		return level, nil
	}
	return adjusted, nil
}

func personVars(p *models.Person) map[string]any {
	return map[string]any{
		"id":         p.ID.String(),
		"role":       string(p.Role),
		"gender":     string(p.Gender),
		"generation": int64(p.Generation),
		"status":     string(p.Status),
	}
}
