// loom-repl is an interactive shell for the loom document model. It
// keeps one document in memory and exposes the batch API, the delta
// history, and undo as commands, which makes it handy for poking at
// transformation behavior by hand.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loomdoc/loom"
)

// REPL holds the state of the interactive session
type REPL struct {
	doc    *loom.Document
	batch  *loom.Batch
	reader *bufio.Reader
	prompt string
}

func main() {
	root := &cobra.Command{
		Use:   "loom-repl",
		Short: "Interactive shell for the loom document model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	root.Flags().String("prompt", "loom> ", "prompt string")
	root.Flags().String("root", "main", "name of the initial document root")

	viper.SetEnvPrefix("LOOM")
	viper.AutomaticEnv()
	viper.BindPFlag("prompt", root.Flags().Lookup("prompt"))
	viper.BindPFlag("root", root.Flags().Lookup("root"))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	fmt.Println("Loom REPL - Tree Document Model Demo")
	fmt.Println("Type 'help' for available commands, 'quit' to exit")
	fmt.Println()

	repl := &REPL{
		doc:    loom.NewDocument(),
		reader: bufio.NewReader(os.Stdin),
		prompt: viper.GetString("prompt"),
	}
	repl.batch = repl.doc.Batch()

	if _, err := repl.doc.CreateRoot(viper.GetString("root")); err != nil {
		return err
	}

	for {
		color.New(color.FgCyan).Print(repl.prompt)
		input, err := repl.reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nGoodbye!")
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if !repl.handleCommand(input) {
			return nil
		}
	}
}

func (r *REPL) handleCommand(input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return true
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help":
		r.printHelp()

	case "quit", "exit":
		fmt.Println("Goodbye!")
		return false

	case "root":
		r.cmdRoot(args)

	case "roots":
		r.cmdRoots()

	case "show":
		r.cmdShow(args)

	case "insert":
		r.cmdInsert(args)

	case "element":
		r.cmdElement(args)

	case "remove":
		r.cmdRemove(args)

	case "move":
		r.cmdMove(args)

	case "split":
		r.cmdSplit(args)

	case "merge":
		r.cmdMerge(args)

	case "rename":
		r.cmdRename(args)

	case "attr":
		r.cmdAttr(args)

	case "replace":
		r.cmdReplace(args)

	case "marker":
		r.cmdMarker(args)

	case "markers":
		r.cmdMarkers()

	case "history":
		r.cmdHistory()

	case "undo":
		r.cmdUndo()

	case "version":
		fmt.Printf("document version: %d\n", r.doc.Version())

	default:
		r.fail(fmt.Errorf("unknown command %q, type 'help'", cmd))
	}

	return true
}

func (r *REPL) printHelp() {
	fmt.Println(`Commands:
  root <name>                          create a new document root
  roots                                list roots
  show [root]                          print a root's tree
  insert <root> <path> <text>          insert a text run
  element <root> <path> <name>         insert an empty element
  remove <root> <path> <howMany>       remove offset units into the graveyard
  move <root> <path> <howMany> <path>  move offset units to a target path
  split <root> <path>                  split the element containing the path
  merge <root> <path>                  merge the elements around the path
  rename <root> <path> <name>          rename the element at the path
  attr <root> <path> <n> <key> <val>   set an attribute over n units ('-' unsets)
  replace <root> <path> <text>         diff-replace an element's text
  marker set <name> <root> <path> <n>  place a marker over n units
  marker del <name>                    remove a marker
  markers                              list markers
  history                              show the delta log
  undo                                 undo the most recent delta
  version                              show the document version
  quit                                 exit`)
}

func (r *REPL) fail(err error) {
	color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
}

func (r *REPL) ok(format string, a ...any) {
	color.New(color.FgGreen).Printf(format+"\n", a...)
}

// parsePath turns "1,2,3" into a slice of offsets.
func parsePath(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	path := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad path element %q", p)
		}
		path[i] = n
	}
	return path, nil
}

func parsePosition(root, pathArg string) (loom.Position, error) {
	path, err := parsePath(pathArg)
	if err != nil {
		return loom.Position{}, err
	}
	return loom.NewPosition(root, path...), nil
}

func (r *REPL) cmdRoot(args []string) {
	if len(args) != 1 {
		r.fail(fmt.Errorf("usage: root <name>"))
		return
	}
	if _, err := r.doc.CreateRoot(args[0]); err != nil {
		r.fail(err)
		return
	}
	r.ok("created root %q", args[0])
}

func (r *REPL) cmdRoots() {
	for _, name := range r.doc.RootNames() {
		fmt.Println(name)
	}
}

func (r *REPL) cmdShow(args []string) {
	name := viper.GetString("root")
	if len(args) > 0 {
		name = args[0]
	}
	root, err := r.doc.GetRoot(name)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Println(loom.DebugString(root))
	gy := r.doc.Graveyard()
	if gy.ChildCount() > 0 {
		color.New(color.Faint).Printf("graveyard: %s\n", loom.DebugString(gy))
	}
}

func (r *REPL) cmdInsert(args []string) {
	if len(args) < 3 {
		r.fail(fmt.Errorf("usage: insert <root> <path> <text>"))
		return
	}
	p, err := parsePosition(args[0], args[1])
	if err != nil {
		r.fail(err)
		return
	}
	if _, err := r.batch.InsertText(p, strings.Join(args[2:], " "), nil); err != nil {
		r.fail(err)
		return
	}
	r.ok("inserted at %s", p)
}

func (r *REPL) cmdElement(args []string) {
	if len(args) != 3 {
		r.fail(fmt.Errorf("usage: element <root> <path> <name>"))
		return
	}
	p, err := parsePosition(args[0], args[1])
	if err != nil {
		r.fail(err)
		return
	}
	if _, err := r.batch.Insert(p, loom.NewElement(args[2], nil)); err != nil {
		r.fail(err)
		return
	}
	r.ok("inserted <%s> at %s", args[2], p)
}

func (r *REPL) cmdRemove(args []string) {
	if len(args) != 3 {
		r.fail(fmt.Errorf("usage: remove <root> <path> <howMany>"))
		return
	}
	p, err := parsePosition(args[0], args[1])
	if err != nil {
		r.fail(err)
		return
	}
	howMany, err := strconv.Atoi(args[2])
	if err != nil {
		r.fail(err)
		return
	}
	if _, err := r.batch.Remove(loom.NewFlatRange(p, howMany)); err != nil {
		r.fail(err)
		return
	}
	r.ok("removed %d units at %s", howMany, p)
}

func (r *REPL) cmdMove(args []string) {
	if len(args) != 4 {
		r.fail(fmt.Errorf("usage: move <root> <path> <howMany> <targetPath>"))
		return
	}
	src, err := parsePosition(args[0], args[1])
	if err != nil {
		r.fail(err)
		return
	}
	howMany, err := strconv.Atoi(args[2])
	if err != nil {
		r.fail(err)
		return
	}
	tgt, err := parsePosition(args[0], args[3])
	if err != nil {
		r.fail(err)
		return
	}
	if _, err := r.batch.Move(loom.NewFlatRange(src, howMany), tgt); err != nil {
		r.fail(err)
		return
	}
	r.ok("moved %d units from %s to %s", howMany, src, tgt)
}

func (r *REPL) cmdSplit(args []string) {
	if len(args) != 2 {
		r.fail(fmt.Errorf("usage: split <root> <path>"))
		return
	}
	p, err := parsePosition(args[0], args[1])
	if err != nil {
		r.fail(err)
		return
	}
	if _, err := r.batch.Split(p); err != nil {
		r.fail(err)
		return
	}
	r.ok("split at %s", p)
}

func (r *REPL) cmdMerge(args []string) {
	if len(args) != 2 {
		r.fail(fmt.Errorf("usage: merge <root> <path>"))
		return
	}
	p, err := parsePosition(args[0], args[1])
	if err != nil {
		r.fail(err)
		return
	}
	if _, err := r.batch.Merge(p); err != nil {
		r.fail(err)
		return
	}
	r.ok("merged at %s", p)
}

func (r *REPL) cmdRename(args []string) {
	if len(args) != 3 {
		r.fail(fmt.Errorf("usage: rename <root> <path> <newName>"))
		return
	}
	p, err := parsePosition(args[0], args[1])
	if err != nil {
		r.fail(err)
		return
	}
	if _, err := r.batch.Rename(p, args[2]); err != nil {
		r.fail(err)
		return
	}
	r.ok("renamed element at %s to <%s>", p, args[2])
}

func (r *REPL) cmdAttr(args []string) {
	if len(args) != 5 {
		r.fail(fmt.Errorf("usage: attr <root> <path> <howMany> <key> <value>"))
		return
	}
	p, err := parsePosition(args[0], args[1])
	if err != nil {
		r.fail(err)
		return
	}
	howMany, err := strconv.Atoi(args[2])
	if err != nil {
		r.fail(err)
		return
	}
	rng := loom.NewFlatRange(p, howMany)
	if args[4] == "-" {
		_, err = r.batch.RemoveAttribute(rng, args[3])
	} else {
		_, err = r.batch.SetAttribute(rng, args[3], args[4])
	}
	if err != nil {
		r.fail(err)
		return
	}
	r.ok("attribute %q updated over %s", args[3], rng)
}

func (r *REPL) cmdReplace(args []string) {
	if len(args) < 3 {
		r.fail(fmt.Errorf("usage: replace <root> <path> <text>"))
		return
	}
	p, err := parsePosition(args[0], args[1])
	if err != nil {
		r.fail(err)
		return
	}
	if _, err := r.batch.ReplaceText(p, strings.Join(args[2:], " ")); err != nil {
		r.fail(err)
		return
	}
	r.ok("replaced text of element at %s", p)
}

func (r *REPL) cmdMarker(args []string) {
	if len(args) == 2 && args[0] == "del" {
		if _, err := r.batch.RemoveMarker(args[1]); err != nil {
			r.fail(err)
			return
		}
		r.ok("marker %q removed", args[1])
		return
	}
	if len(args) != 5 || args[0] != "set" {
		r.fail(fmt.Errorf("usage: marker set <name> <root> <path> <howMany> | marker del <name>"))
		return
	}
	p, err := parsePosition(args[2], args[3])
	if err != nil {
		r.fail(err)
		return
	}
	howMany, err := strconv.Atoi(args[4])
	if err != nil {
		r.fail(err)
		return
	}
	if _, err := r.batch.SetMarker(args[1], loom.NewFlatRange(p, howMany)); err != nil {
		r.fail(err)
		return
	}
	r.ok("marker %q set", args[1])
}

func (r *REPL) cmdMarkers() {
	for _, name := range r.doc.MarkerNames() {
		rng, _ := r.doc.Marker(name)
		fmt.Printf("%s: %s\n", name, rng)
	}
}

func (r *REPL) cmdHistory() {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Kind", "Base", "Ops"})
	for i, d := range r.doc.History().AllDeltas() {
		ops := make([]string, d.Len())
		for j, op := range d.Operations() {
			ops[j] = op.Kind().String()
		}
		t.AppendRow(table.Row{i, d.Kind(), d.BaseVersion(), strings.Join(ops, ", ")})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func (r *REPL) cmdUndo() {
	deltas := r.doc.History().AllDeltas()
	if len(deltas) == 0 {
		r.fail(fmt.Errorf("nothing to undo"))
		return
	}
	reversed := deltas[len(deltas)-1].Reversed()
	rebased, err := r.doc.History().GetTransformedDelta(reversed)
	if err != nil {
		r.fail(err)
		return
	}
	for _, d := range rebased {
		for _, op := range d.Operations() {
			if err := r.doc.ApplyOperation(op); err != nil {
				r.fail(err)
				return
			}
		}
	}
	r.ok("undone %s delta", deltas[len(deltas)-1].Kind())
}
