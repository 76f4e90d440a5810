package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/rodentplay/rodentbot/internal/chat"
)

// Command is a parsed chat command.
type Command struct {
	Name string   // canonical English name
	Verb string   // what the requester typed
	Args []string // remaining words
	Text string   // everything after the verb, untouched
}

// aliases maps the Spanish command words to their English names.
var aliases = map[string]string{
	"sigueme":            "follow",
	"quedate":            "stay",
	"reanuda":            "resume",
	"ven":                "come",
	"ve":                 "goto",
	"aplana":             "flatten",
	"consigue":           "gather",
	"dame":               "deliver",
	"tira":               "deliver",
	"protegeme":          "guard",
	"no_protejas":        "unguard",
	"parar_proteccion":   "unguard",
	"detener_proteccion": "unguard",
	"inventario":         "inventory",
	"list":               "inventory",
	"equipar":            "equip",
	"desequipar":         "unequip",
	"usar":               "use",
	"fabricar":           "craft",
	"hambre":             "hunger",
	"cola":               "queue",
	"historial":          "history",
	"ayuda":              "help",
}

// Parse extracts a command from text. ok is false when text does not start
// with prefix (case-insensitively) or names no command word.
func Parse(prefix, text string) (Command, bool) {
	trimmed := strings.TrimSpace(text)
	p := strings.ToLower(strings.TrimSpace(prefix))
	if p == "" || !strings.HasPrefix(strings.ToLower(trimmed), p) {
		return Command{}, false
	}
	rest := trimmed[len(p):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return Command{}, false
	}
	rest = strings.TrimSpace(rest)
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Command{}, false
	}

	verb := strings.ToLower(fields[0])
	name := verb
	if en, ok := aliases[verb]; ok {
		name = en
	}
	return Command{
		Name: name,
		Verb: verb,
		Args: fields[1:],
		Text: strings.TrimSpace(rest[len(fields[0]):]),
	}, true
}

type handler func(ctx context.Context, requester string, cmd Command)

func (a *Agent) commandTable() map[string]handler {
	return map[string]handler{
		"goto":      a.cmdGoto,
		"flatten":   a.cmdFlatten,
		"gather":    a.cmdGather,
		"deliver":   a.cmdDeliver,
		"follow":    a.cmdFollow,
		"stay":      a.cmdStay,
		"resume":    a.cmdResume,
		"come":      a.cmdCome,
		"guard":     a.cmdGuard,
		"unguard":   a.cmdUnguard,
		"inventory": a.cmdInventory,
		"equip":     a.cmdEquip,
		"unequip":   a.cmdUnequip,
		"use":       a.cmdUse,
		"craft":     a.cmdCraft,
		"hunger":    a.cmdHunger,
		"queue":     a.cmdQueue,
		"history":   a.cmdHistory,
		"chat":      a.cmdChat,
		"help":      a.cmdHelp,
	}
}

// HandleChat runs the command in msg, if any, while holding the control
// baton. Lines from the agent itself are ignored.
func (a *Agent) HandleChat(ctx context.Context, msg chat.Message) {
	if msg.From == "" || msg.From == a.cfg.Name {
		return
	}
	cmd, ok := Parse(a.cfg.Command.Prefix, msg.Text)
	if !ok {
		return
	}
	a.logger.Info("command received",
		zap.String("from", msg.From),
		zap.String("command", cmd.Name),
		zap.Strings("args", cmd.Args))

	h, ok := a.commands[cmd.Name]
	if !ok {
		a.say(msg.From, "I don't know the command '"+cmd.Verb+"'. Say '"+a.usage("help")+"' to see what I can do.")
		return
	}
	a.sched.Control().Do(func() {
		h(ctx, msg.From, cmd)
	})
}

// Serve handles inbound messages until ctx is done or msgs closes.
func (a *Agent) Serve(ctx context.Context, msgs <-chan chat.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			a.HandleChat(ctx, msg)
		}
	}
}

func (a *Agent) usage(rest string) string {
	return strings.TrimSpace(a.cfg.Command.Prefix) + " " + rest
}
