package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

type command struct {
	name        string
	description string
	exec        func(ctx context.Context, conv Conversation, arg string)
}

// Persona is one entry of the persona file: a named alternative system
// prompt.
type Persona struct {
	Name   string `json:"name"`
	Info   string `json:"info"`
	Prompt string `json:"prompt"`
}

const helpText = "========\n" +
	"可用命令，请在前面加上/command \n" +
	"list\n" +
	"prompt <PROMPT>\n" +
	"image <PROMPT>\n" +
	"clear\n" +
	"greeting <0|1>\n" +
	"persona <序号>\n" +
	"========"

func (b *Bot) registerCommands() {
	b.cmds = []command{
		{
			name:        "list",
			description: "显示帮助信息",
			exec: func(ctx context.Context, conv Conversation, arg string) {
				b.say(conv, helpText)
			},
		},
		{
			name:        "prompt",
			description: "设置当前会话的prompt",
			exec: func(ctx context.Context, conv Conversation, arg string) {
				b.store.SetPrompt(conv.ID, arg)
			},
		},
		{
			name:        "greeting",
			description: "设置当前对话是否允许BOT时不时主动发消息",
			exec: func(ctx context.Context, conv Conversation, arg string) {
				if arg == "1" || arg == "true" {
					b.scheduler.Enable(conv.ID)
					b.say(conv, "好哒，谢谢主人允许我打扰您，嘿嘿~\n")
					return
				}
				b.scheduler.Disable(conv.ID)
				b.say(conv, "好哒，我会安静地不打扰主人~\n")
			},
		},
		{
			name:        "clear",
			description: "清除当前会话的历史记录",
			exec: func(ctx context.Context, conv Conversation, arg string) {
				b.store.Clear(conv.ID)
			},
		},
		{
			name:        "persona",
			description: "查看或切换人格",
			exec:        b.personaCommand,
		},
	}
}

// Dispatch parses a command line (without the command prefix) and runs the
// matching handler. Unknown names are ignored.
func (b *Bot) Dispatch(ctx context.Context, conv Conversation, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	name := fields[0]
	arg := strings.Join(fields[1:], " ")

	for _, cmd := range b.cmds {
		if cmd.name == name {
			cmd.exec(ctx, conv, arg)
			return
		}
	}
	log.Printf("[bot] unknown command %q from %s", name, conv.ID)
}

// personaCommand lists the configured personas, or switches the
// conversation's system prompt to the persona at the given index.
func (b *Bot) personaCommand(ctx context.Context, conv Conversation, arg string) {
	personas, err := loadPersonas(b.cfg.PersonaPath)
	if err != nil {
		b.say(conv, fmt.Sprintf("Error reading persona file: %v", err))
		return
	}

	if idx, err := strconv.Atoi(strings.TrimSpace(arg)); err == nil && idx >= 0 && idx < len(personas) {
		p := personas[idx]
		b.store.SetPrompt(conv.ID, p.Prompt)
		b.say(conv, "有这个性格噢: "+p.Name+"\n在这个性格下，我会...：\n"+p.Info)
		b.say(conv, "已经切换到这个人格啦，来和我聊聊吧~")
		return
	}

	var sb strings.Builder
	sb.WriteString("command persona [序号] 可以操作我的人格 \n")
	for i, p := range personas {
		fmt.Fprintf(&sb, "%d - %q : %q\n\n", i, p.Name, p.Info)
	}
	b.say(conv, sb.String())
}

func loadPersonas(path string) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var personas []Persona
	if err := json.Unmarshal(data, &personas); err != nil {
		return nil, err
	}
	return personas, nil
}
