package react

import (
	"fmt"
	"strings"

	"github.com/developmentseed/labs-gpt-stac/framework"
)

const promptHeader = `You run in a loop of Thought, Action, PAUSE, Observation.
At the end of the loop you output an Answer
Use Thought to describe your thoughts about the question you have been asked.
Use Action to run one of the actions available to you - then return PAUSE.
Observation will be the result of running those actions.

The questions will involve getting satellite imagery out of a STAC catalog.

To resolve the question, you have the following tools available that you can use.

Your available actions are:`

const promptFooter = `Please remember that these are your only three available actions. Do not attempt to put any word after "Action: " other than wikipedia, calculate or stac. THIS IS A HARD RULE. DO NOT BREAK IT AT ANY COST. DO NOT MAKE UP YOUR OWN ACTIONS.

Always look things up on Wikipedia if you have the opportunity to do so.

Example session:

Question: Can you point me to satellite images for 2019 January, for the capital of France?
Thought: I should look up France on Wikipedia, find its capital, and find its bounding box extent.
Action: wikipedia: France
PAUSE

You will be called again with this:

Observation: France is a country. The capital is Paris. Its bbox is [27, 54, 63, 32.5]

You then output:

Thought: I should now query the STAC catalog to fetch data about satellite images of Paris.

Action: stac: bbox=[27, 54, 63, 32.5] && datetime=['2019-01-01T00:00:00Z', '2019-01-02T00:00:00Z']
PAUSE

You will be called again with the output from the STAC query as JSON. Use that to give the user information about what is available on STAC for their query.`

// BuildSystemPrompt renders the fixed instructions for the given registry.
// Vocabulary entries missing from the registry are skipped.
func BuildSystemPrompt(registry *framework.ToolRegistry) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\n")
	for _, name := range Vocabulary {
		if registry == nil {
			break
		}
		tool, ok := registry.Get(string(name))
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s:\ne.g. %s: %s\n%s\n\n", name, name, tool.Example(), tool.Description())
	}
	b.WriteString(promptFooter)
	return b.String()
}
