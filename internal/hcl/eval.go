package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/vk/roofline/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// newEvalContext exposes tool_dir, cwd and env to profile expressions, so
// that paths like "${tool_dir}/client/build/libroofline.so" and secrets like
// env.MINIO_SECRET_KEY resolve at load time.
func newEvalContext(vars config.Variables) *hcl.EvalContext {
	env := cty.MapValEmpty(cty.String)
	if len(vars.Env) > 0 {
		m := make(map[string]cty.Value, len(vars.Env))
		for k, v := range vars.Env {
			m[k] = cty.StringVal(v)
		}
		env = cty.MapVal(m)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"tool_dir": cty.StringVal(vars.ToolDir),
			"cwd":      cty.StringVal(vars.WorkDir),
			"env":      env,
		},
	}
}
