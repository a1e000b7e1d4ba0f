package similarity

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/freadom/readrec/pkg/dsl"
)

// Rule 是分层匹配策略中的一条规则。
// 规则按声明顺序求值，第一条守卫命中的规则决定档位与分数：
//
//	score = clamp01(Base + Bonus * bonus_by 对应的变量)
//
// When 是 CEL 守卫表达式（见 pkg/dsl 的变量说明）；空表达式恒真，
// 用于最后的兜底档。
type Rule struct {
	Tier    string  `yaml:"tier"`
	When    string  `yaml:"when"`
	Base    float64 `yaml:"base"`
	Bonus   float64 `yaml:"bonus"`
	BonusBy string  `yaml:"bonus_by"` // ratio（默认）/ related
}

// Policy 是关键词后端的可替换策略表。
// 分档常量与次级词表绑定的是示例内容的题材（奇幻/冒险），
// 属于启发式占位而非调优模型，所以整表可由配置文件替换。
type Policy struct {
	Rules             []Rule   `yaml:"rules"`
	RelatedVocabulary []string `yaml:"related_vocabulary"`
}

// DefaultPolicy 返回内置策略表。
// 档位与常量：
//
//	strong  0.85 + 0.15*ratio   强亲和词与互补词同时命中
//	good    0.70 + 0.20*ratio   三个主题词任一命中
//	basic   0.55 + 0.25*ratio   任意直接命中
//	related 0.45 + 0.10*hits    仅次级词表命中
//	floor   0.30                无任何关联
//
// good 档的加成系数大于 strong 档是有意的：满命中率的 good（0.90）
// 可以略高于低命中率的 strong（0.85+ε）。档位描述的是命中方式，
// 不保证跨档分数单调。
func DefaultPolicy() *Policy {
	return &Policy{
		Rules: []Rule{
			{
				Tier:  "strong",
				When:  `"fantasy" in direct && ("magic" in direct || "adventure" in direct)`,
				Base:  0.85,
				Bonus: 0.15,
			},
			{
				Tier:  "good",
				When:  `"fantasy" in direct || "magic" in direct || "adventure" in direct`,
				Base:  0.70,
				Bonus: 0.20,
			},
			{
				Tier:  "basic",
				When:  `size(direct) > 0`,
				Base:  0.55,
				Bonus: 0.25,
			},
			{
				Tier:    "related",
				When:    `related > 0`,
				Base:    0.45,
				Bonus:   0.10,
				BonusBy: "related",
			},
			{
				Tier: "floor",
				Base: 0.30,
			},
		},
		RelatedVocabulary: []string{
			"wizards", "dragons", "elves", "magical", "quest", "myth",
			"journey", "explore", "discover", "danger",
		},
	}
}

// LoadPolicy 从 YAML 文件加载策略表。
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy yaml: %w", err)
	}
	if len(p.Rules) == 0 {
		return nil, fmt.Errorf("policy has no rules")
	}
	return &p, nil
}

// compiledRule 是编译后的策略规则。
type compiledRule struct {
	Rule
	prg *dsl.Program
}

// CompiledPolicy 是编译后的策略表，可并发使用。
type CompiledPolicy struct {
	rules   []compiledRule
	related map[string]bool
}

// Compile 编译策略表中的全部守卫表达式。
// 任一表达式非法即返回错误，调用方应回退到 DefaultPolicy。
func (p *Policy) Compile() (*CompiledPolicy, error) {
	cp := &CompiledPolicy{
		rules:   make([]compiledRule, 0, len(p.Rules)),
		related: make(map[string]bool, len(p.RelatedVocabulary)),
	}
	for _, r := range p.Rules {
		prg, err := dsl.Compile(r.When)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Tier, err)
		}
		cp.rules = append(cp.rules, compiledRule{Rule: r, prg: prg})
	}
	for _, w := range p.RelatedVocabulary {
		cp.related[w] = true
	}
	return cp, nil
}

// MustCompileDefault 编译内置策略表。内置表达式由测试覆盖，编译失败属于
// 程序性错误，直接 panic。
func MustCompileDefault() *CompiledPolicy {
	cp, err := DefaultPolicy().Compile()
	if err != nil {
		panic(fmt.Sprintf("similarity: default policy does not compile: %v", err))
	}
	return cp
}

// IsRelated 检查一个词是否在次级词表内。
func (cp *CompiledPolicy) IsRelated(word string) bool {
	return cp.related[word]
}

// Evaluate 按序求值规则，返回命中的档位与分数（clamp 到 [0,1]）。
// 守卫求值出错的规则被跳过；所有规则都未命中时返回保守的兜底分。
func (cp *CompiledPolicy) Evaluate(direct []string, ratio float64, related int) (string, float64) {
	input := map[string]interface{}{
		"direct":  direct,
		"ratio":   ratio,
		"related": related,
	}
	for _, r := range cp.rules {
		ok, err := r.prg.EvalBool(input)
		if err != nil || !ok {
			continue
		}
		arg := ratio
		if r.BonusBy == "related" {
			arg = float64(related)
		}
		return r.Tier, clamp01(r.Base + r.Bonus*arg)
	}
	return "floor", 0.30
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
