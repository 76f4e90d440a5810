package tasks

import (
	"fmt"
	"strconv"

	"github.com/rodentplay/rodentbot/internal/scheduler"
	"github.com/rodentplay/rodentbot/internal/world"
)

// Task bodies read everything they need from their argument list, so a
// requeued task re-runs exactly what was asked. The *Args helpers build
// those lists.

// GotoArgs encodes a goto target.
func GotoArgs(target world.Vec3) []string {
	return []string{
		strconv.FormatFloat(target.X, 'f', -1, 64),
		strconv.FormatFloat(target.Y, 'f', -1, 64),
		strconv.FormatFloat(target.Z, 'f', -1, 64),
	}
}

func parseGoto(args []string) (world.Vec3, error) {
	if len(args) != 3 {
		return world.Vec3{}, badArgs("goto", args)
	}
	var v [3]float64
	for i, s := range args {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return world.Vec3{}, badArgs("goto", args)
		}
		v[i] = f
	}
	return world.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

// GatherArgs encodes a gather request. A quantity of zero means one batch.
func GatherArgs(block string, quantity int) []string {
	return []string{block, strconv.Itoa(max(quantity, 0))}
}

func parseGather(args []string) (string, int, error) {
	if len(args) == 0 || len(args) > 2 || args[0] == "" {
		return "", 0, badArgs("gather", args)
	}
	quantity := 0
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return "", 0, badArgs("gather", args)
		}
		quantity = n
	}
	return args[0], quantity, nil
}

// FlattenArgs encodes a flatten request. A nil height uses the default
// levels.
func FlattenArgs(length, width int, height *int) []string {
	args := []string{strconv.Itoa(length), strconv.Itoa(width)}
	if height != nil {
		args = append(args, strconv.Itoa(*height))
	}
	return args
}

func parseFlatten(args []string) (length, width int, height *int, err error) {
	if len(args) < 2 || len(args) > 3 {
		return 0, 0, nil, badArgs("flatten", args)
	}
	length, err1 := strconv.Atoi(args[0])
	width, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil || length < 1 || width < 1 {
		return 0, 0, nil, badArgs("flatten", args)
	}
	if len(args) == 3 {
		h, err := strconv.Atoi(args[2])
		if err != nil {
			return 0, 0, nil, badArgs("flatten", args)
		}
		height = &h
	}
	return length, width, height, nil
}

// DeliverArgs encodes a delivery. An amount of zero hands over every unit.
func DeliverArgs(item string, amount int) []string {
	return []string{item, strconv.Itoa(max(amount, 0))}
}

func parseDeliver(args []string) (string, int, error) {
	if len(args) == 0 || len(args) > 2 || args[0] == "" {
		return "", 0, badArgs("deliver", args)
	}
	amount := 0
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return "", 0, badArgs("deliver", args)
		}
		amount = n
	}
	return args[0], amount, nil
}

func badArgs(name string, args []string) error {
	return &scheduler.TaskError{
		Reason: fmt.Sprintf("I can't make sense of the %s arguments", name),
		Err:    fmt.Errorf("invalid arguments %q", args),
	}
}
