// Package dsl 是分层匹配策略的守卫表达式解释器，使用 CEL
// (Common Expression Language) 实现。CEL 类型安全、高性能、线程安全，
// 表达式编译一次后可被并发复用。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

// 表达式可见的变量：
//   - direct:  list<string>，兴趣与内容关键词的直接交集（已小写）
//   - ratio:   double，直接命中率 |交集| / max(1, |interests|)
//   - related: int，次级词表（related vocabulary）的命中数
//
// 语法示例：
//   - `"fantasy" in direct && ("magic" in direct || "adventure" in direct)`
//   - `size(direct) > 0`
//   - `related > 0`
//   - `ratio >= 0.5`
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("direct", cel.ListType(cel.StringType)),
		cel.Variable("ratio", cel.DoubleType),
		cel.Variable("related", cel.IntType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Program 是一条编译好的守卫表达式，可并发执行。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译守卫表达式。空表达式视为恒真（兜底规则）。
func Compile(expr string) (*Program, error) {
	if expr == "" {
		return &Program{expr: expr}, nil
	}

	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}

	return &Program{expr: expr, prg: prg}, nil
}

// Expr 返回原始表达式文本。
func (p *Program) Expr() string { return p.expr }

// EvalBool 执行表达式，返回布尔结果。
// 输入 key 必须覆盖 direct / ratio / related 三个变量。
func (p *Program) EvalBool(input map[string]interface{}) (bool, error) {
	if p.prg == nil {
		// 空表达式：恒真
		return true, nil
	}

	out, _, err := p.prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", p.expr, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q must return boolean, got %T", p.expr, out.Value())
	}
	return result, nil
}
