package relay

import (
	"github.com/cloudwego/eino/schema"

	"github.com/mudouban/ai-asks-human/backend/internal/survey"
)

// ToolName is the only function the model is allowed to call.
const ToolName = "AskUserQuestion"

// askUserQuestionTool declares the structured-question tool in the
// provider's function-calling format. The bounds mirror the survey package:
// 1-4 questions, 2-4 options each, explicit multiSelect.
func askUserQuestionTool() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolName,
		Desc: `Use this tool when you need to ask the user questions during execution. This allows you to:
1. Gather user preferences or requirements
2. Clarify ambiguous instructions
3. Get decisions on implementation choices as you work
4. Offer choices to the user about what direction to take.

Usage notes:
- Users will always be able to select "Other" to provide custom text input
- Use multiSelect: true to allow multiple answers to be selected for a question`,
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"questions": {
				Type:     schema.Array,
				Desc:     "Questions to ask the user (1-4 questions)",
				Required: true,
				ElemInfo: &schema.ParameterInfo{
					Type: schema.Object,
					SubParams: map[string]*schema.ParameterInfo{
						"question": {
							Type:     schema.String,
							Desc:     "The complete question to ask the user. Should be clear, specific, and end with a question mark.",
							Required: true,
						},
						"header": {
							Type:     schema.String,
							Desc:     `Very short label displayed as a chip/tag (max 12 chars). Examples: "Auth method", "Library", "Approach".`,
							Required: true,
						},
						"options": {
							Type:     schema.Array,
							Desc:     "The available choices for this question. Must have 2-4 options.",
							Required: true,
							ElemInfo: &schema.ParameterInfo{
								Type: schema.Object,
								SubParams: map[string]*schema.ParameterInfo{
									"label": {
										Type:     schema.String,
										Desc:     "The display text for this option (1-5 words).",
										Required: true,
									},
									"description": {
										Type:     schema.String,
										Desc:     "Explanation of what this option means or what will happen if chosen.",
										Required: true,
									},
								},
							},
						},
						"multiSelect": {
							Type:     schema.Boolean,
							Desc:     "Set to true to allow the user to select multiple options.",
							Required: true,
						},
					},
				},
			},
		}),
	}
}

// ParseSurveyArguments decodes the arguments of an AskUserQuestion call into
// a validated question list.
func ParseSurveyArguments(arguments string) ([]survey.Question, error) {
	return survey.ParseQuestions(arguments)
}
