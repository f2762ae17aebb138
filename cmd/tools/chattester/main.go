package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mudouban/ai-asks-human/backend/internal/config"
	"github.com/mudouban/ai-asks-human/backend/internal/model/scenario"
	"github.com/mudouban/ai-asks-human/backend/internal/service/conversation"
	"github.com/mudouban/ai-asks-human/backend/internal/service/relay"
	"github.com/mudouban/ai-asks-human/backend/internal/store"
	"github.com/mudouban/ai-asks-human/backend/internal/survey"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	scenarioID := flag.String("scenario", "career-advice", "场景 ID")
	list := flag.Bool("list", false, "列出可用场景后退出")
	timeout := flag.Duration("timeout", 45*time.Second, "单次模型请求超时时间")

	flag.Parse()

	scenarios := scenario.NewMemoryStore(scenario.Seed())

	if *list {
		for _, sc := range scenarios.List() {
			fmt.Printf("%-22s %s\n", sc.ID, sc.Name)
		}
		return
	}

	if !cfg.AI.Enabled() {
		log.Fatal("模型未配置，请先在环境变量中设置 AI_API_KEY 和 AI_MODEL")
	}

	relaySvc, err := relay.NewService(context.Background(), cfg.AI)
	if err != nil {
		log.Fatalf("模型初始化失败: %v", err)
	}

	svc := conversation.NewService(scenarios, store.NewMemoryStore(0), relaySvc)

	conv, err := svc.Start(context.Background(), *scenarioID)
	if err != nil {
		log.Fatalf("创建对话失败: %v", err)
	}

	fmt.Printf("对话已创建: %s (场景 %s)\n", conv.ID, conv.ScenarioID)
	fmt.Printf("AI: %s\n", conv.Messages[0].Content)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		result, err := svc.SubmitText(ctx, conv.ID, line)
		cancel()
		if err != nil {
			log.Printf("发送失败: %v", err)
			continue
		}

		printTurn(result)

		for len(result.Questions) > 0 {
			answers, err := answerSurvey(reader, result.Questions)
			if err != nil {
				log.Printf("问卷作答失败: %v", err)
				break
			}

			ctx, cancel := context.WithTimeout(context.Background(), *timeout)
			result, err = svc.SubmitAnswers(ctx, conv.ID, answers)
			cancel()
			if err != nil {
				log.Printf("提交答案失败: %v", err)
				break
			}
			printTurn(result)
		}

		if result.Finished {
			fmt.Println("对话已自然结束")
			return
		}
	}
}

func printTurn(result conversation.TurnResult) {
	if result.Message.Content != "" {
		fmt.Printf("AI: %s\n", result.Message.Content)
	}
	for i, q := range result.Questions {
		mode := "单选"
		if q.MultiSelect {
			mode = "多选"
		}
		fmt.Printf("[问题 %d/%d · %s · %s] %s\n", i+1, len(result.Questions), q.Header, mode, q.Question)
		for j, opt := range q.Options {
			fmt.Printf("  %d. %s", j+1, opt.Label)
			if opt.Description != "" {
				fmt.Printf("  (%s)", opt.Description)
			}
			fmt.Println()
		}
		fmt.Printf("  %d. 其他（自由输入）\n", len(q.Options)+1)
	}
}

// answerSurvey drives the panel state machine from line input: option numbers
// select or toggle, the trailing number opens the free-text entry, an empty
// line moves to the next question, and the final submit runs once everything
// is answered.
func answerSurvey(reader *bufio.Reader, questions []survey.Question) (survey.Answers, error) {
	panel, err := survey.NewPanel(questions)
	if err != nil {
		return nil, err
	}

	for i, q := range questions {
		panel.SetCurrent(i)
		for {
			fmt.Printf("问题 %d 选择 (序号，多选可多次输入，空行确认): ", i+1)
			line, err := reader.ReadString('\n')
			if err != nil {
				return nil, err
			}
			line = strings.TrimSpace(line)
			if line == "" {
				if panel.Answered(i) {
					break
				}
				fmt.Println("该问题尚未作答")
				continue
			}

			choice, err := strconv.Atoi(line)
			if err != nil || choice < 1 || choice > len(q.Options)+1 {
				fmt.Println("无效序号")
				continue
			}

			if choice <= len(q.Options) {
				panel.SelectOption(i, choice-1)
				if !q.MultiSelect {
					break
				}
				continue
			}

			fmt.Print("请输入自定义答案: ")
			text, err := reader.ReadString('\n')
			if err != nil {
				return nil, err
			}
			panel.SetOtherText(i, strings.TrimSpace(text))
			if !q.MultiSelect {
				break
			}
		}
	}

	return panel.Submit()
}
