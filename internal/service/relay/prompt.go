package relay

import (
	"strings"

	"github.com/mudouban/ai-asks-human/backend/internal/model/scenario"
)

// surveyGuidance 说明结构化提问工具的使用时机，附加在每个场景提示词之后。
const surveyGuidance = `工具使用说明:
当你希望用户在几个明确的方向之间做出选择时, 调用 AskUserQuestion 工具, 而不是用纯文本罗列选项。
- 每次调用提出 1-4 个问题, 每个问题给出 2-4 个选项
- header 是问题的简短标签 (不超过 12 个字符)
- 用户总是可以选择 "Other" 输入自定义答案
- 收到工具结果后, 基于用户的选择继续对话`

// scenarioHints carries per-scenario guidance on when a structured survey
// beats a free-text question. Scenarios without an entry only get the
// generic guidance.
var scenarioHints = map[string]string{
	"decision-making":    "当用户列出了可比较的候选项 (例如两份工作、两个方案) 时, 优先用 AskUserQuestion 让用户勾选关键考量因素。",
	"creative-brainstorm": "当需要用户从几个创意方向中挑选时, 用 AskUserQuestion 给出方向选项, 鼓励用户用 Other 补充自己的想法。",
}

// BuildSystemPrompt assembles the system message for a scenario: the
// scenario's own instructions followed by the survey-tool guidance.
func BuildSystemPrompt(sc scenario.Scenario) string {
	var builder strings.Builder
	builder.WriteString(sc.SystemPrompt)
	builder.WriteString("\n\n")
	builder.WriteString(surveyGuidance)
	if hint, ok := scenarioHints[sc.ID]; ok {
		builder.WriteString("\n")
		builder.WriteString(hint)
	}
	return builder.String()
}
