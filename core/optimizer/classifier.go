package optimizer

import (
	"context"
	"strings"

	"github.com/kilianp07/blockplan/core/factory"
	"github.com/kilianp07/blockplan/core/model"
)

// CategoryOther is the category used when nothing else matches or when
// classification fails.
const CategoryOther = "other"

// Candidate is what a Classifier sees of a source group.
type Candidate struct {
	GroupID      string   `json:"group_id"`
	GroupTitle   string   `json:"group_title"`
	Titles       []string `json:"titles"`
	CategoryHint string   `json:"category_hint,omitempty"`
}

// Classification assigns a category and a priority (1..5, lower is more
// protected) to a candidate.
type Classification struct {
	Category string `json:"category"`
	Priority int    `json:"priority"`
}

// Fallback is the classification used when a classifier fails.
var Fallback = Classification{Category: CategoryOther, Priority: model.PriorityLowest}

// Classifier infers category and priority for a candidate group.
type Classifier interface {
	Classify(ctx context.Context, c Candidate) (Classification, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, c Candidate) (Classification, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, c Candidate) (Classification, error) {
	return f(ctx, c)
}

// Rule maps keywords to a category.
type Rule struct {
	Category string   `json:"category"`
	Priority int      `json:"priority"`
	Keywords []string `json:"keywords"`
}

// DefaultRules cover the usual sources of a family or student timetable.
var DefaultRules = []Rule{
	{Category: "school", Priority: 1, Keywords: []string{"school", "class", "lecture", "course", "seminar", "학교", "수업", "교시"}},
	{Category: "academy", Priority: 2, Keywords: []string{"academy", "tutor", "cram", "math", "english", "science", "coding", "학원", "과외", "수학", "영어"}},
	{Category: "arts", Priority: 3, Keywords: []string{"piano", "violin", "art", "music", "drawing", "ballet", "dance", "피아노", "미술", "음악", "댄스", "발레"}},
	{Category: "sports", Priority: 3, Keywords: []string{"soccer", "football", "swim", "taekwondo", "tennis", "basketball", "gym", "judo", "수영", "태권도", "축구"}},
	{Category: "care", Priority: 4, Keywords: []string{"daycare", "after-school", "care", "돌봄", "방과후"}},
}

// RuleClassifier is the deterministic keyword classifier.
type RuleClassifier struct {
	Rules []Rule
}

// NewRuleClassifier returns a classifier using rules, or DefaultRules when
// rules is empty.
func NewRuleClassifier(rules []Rule) *RuleClassifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &RuleClassifier{Rules: rules}
}

// Classify matches the category hint first, then the group title, then the
// block titles. The first matching rule wins.
func (r *RuleClassifier) Classify(_ context.Context, c Candidate) (Classification, error) {
	if c.CategoryHint != "" {
		for _, rule := range r.Rules {
			if strings.EqualFold(rule.Category, c.CategoryHint) {
				return Classification{Category: rule.Category, Priority: rule.Priority}, nil
			}
		}
	}
	texts := append([]string{c.GroupTitle}, c.Titles...)
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, rule := range r.Rules {
			for _, kw := range rule.Keywords {
				if strings.Contains(lower, strings.ToLower(kw)) {
					return Classification{Category: rule.Category, Priority: rule.Priority}, nil
				}
			}
		}
	}
	return Classification{Category: CategoryOther, Priority: 4}, nil
}

var classifiers = factory.NewRegistry[Classifier]("classifier")

func init() {
	classifiers.MustRegister("rules", func(conf map[string]any) (Classifier, error) {
		var c struct {
			Rules []Rule `json:"rules"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRuleClassifier(c.Rules), nil
	})
}

// RegisterClassifier adds a classifier factory identified by name.
func RegisterClassifier(name string, f factory.Factory[Classifier]) error {
	return classifiers.Register(name, f)
}

// NewClassifier builds the named classifier. An empty name yields the rule
// classifier.
func NewClassifier(name string, conf map[string]any) (Classifier, error) {
	if name == "" {
		name = "rules"
	}
	return classifiers.Create(factory.ModuleConfig{Type: name, Conf: conf})
}
