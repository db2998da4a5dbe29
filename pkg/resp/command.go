package resp

import (
	"strings"

	"github.com/tidwall/redcon"
)

// Command names used by the pub/sub layer.
const (
	CmdSubscribe    = "SUBSCRIBE"
	CmdUnsubscribe  = "UNSUBSCRIBE"
	CmdPSubscribe   = "PSUBSCRIBE"
	CmdPUnsubscribe = "PUNSUBSCRIBE"
)

// Command is an outbound request: a name followed by its arguments.
type Command struct {
	Name string
	Args [][]byte
}

// NewCommand builds a command from string arguments.
func NewCommand(name string, args ...string) Command {
	cmd := Command{Name: name, Args: make([][]byte, len(args))}
	for i, a := range args {
		cmd.Args[i] = []byte(a)
	}
	return cmd
}

// Encode appends the RESP array form of the command to dst.
func (c Command) Encode(dst []byte) []byte {
	dst = redcon.AppendArray(dst, len(c.Args)+1)
	dst = redcon.AppendBulkString(dst, c.Name)
	for _, a := range c.Args {
		dst = redcon.AppendBulk(dst, a)
	}
	return dst
}

// Strings returns the arguments as strings.
func (c Command) Strings() []string {
	out := make([]string, len(c.Args))
	for i, a := range c.Args {
		out[i] = string(a)
	}
	return out
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Strings(), " ")
}
