package component

import (
	"fmt"

	"github.com/sirupsen/logrus"

	shellpack "github.com/moxforge/shellpack/pkg"
)

// Selection pairs a catalog component with the operator's (or
// policy's) verdict. Every catalog component gets a Selection;
// a false Include means nothing downstream ever stages it.
type Selection struct {
	Component Component
	Include   bool
}

// Collector decides which components a run stages. Policy first, then
// detection, then the operator.
type Collector struct {
	components []Component
	prompter   shellpack.Prompter
	sink       shellpack.StatusSink
	log        *logrus.Logger
}

func NewCollector(components []Component, prompter shellpack.Prompter, sink shellpack.StatusSink, log *logrus.Logger) *Collector {
	return &Collector{components: components, prompter: prompter, sink: sink, log: log}
}

// Select walks the catalog and returns one Selection per component.
// Under shareable mode the sensitive components are forced to excluded
// before detection or prompting happens; their Selection carries a
// false Include so the backup set records them as left out, and the
// operator is never asked about them.
func (c *Collector) Select(env *Env, mode shellpack.Mode) ([]Selection, error) {
	selections := make([]Selection, 0, len(c.components))
	for _, comp := range c.components {
		if mode == shellpack.ModeShareable && comp.Sensitive() {
			c.sink.Statusf(shellpack.StatusSkip, "%s (excluded from shareable backup)", comp.Label())
			selections = append(selections, Selection{Component: comp})
			continue
		}
		if !comp.Detect(env) {
			c.log.Debugf("component %s not detected", comp.Name())
			selections = append(selections, Selection{Component: comp})
			continue
		}
		include := true
		if comp.Prompted() {
			answer, err := c.prompter.Confirm(fmt.Sprintf("Include %s?", comp.Label()), comp.PromptDefault())
			if err != nil {
				return nil, fmt.Errorf("prompting for %s: %w", comp.Name(), err)
			}
			include = answer
			if !include {
				c.sink.Statusf(shellpack.StatusSkip, "%s (excluded)", comp.Label())
			}
		}
		selections = append(selections, Selection{Component: comp, Include: include})
	}
	return selections, nil
}

// EstimateKB totals the size estimate over the included selections.
func EstimateKB(env *Env, selections []Selection) int {
	total := 0
	for _, s := range selections {
		if s.Include {
			total += s.Component.EstimateKB(env)
		}
	}
	return total
}

// ByName finds a catalog component.
func ByName(components []Component, name string) (Component, bool) {
	for _, comp := range components {
		if comp.Name() == name {
			return comp, true
		}
	}
	return nil, false
}
