package interp

import (
	"context"
	"os"
	"strconv"
)

// biTest implements the `test` builtin's single-bracket grammar: no
// trailing "]" argument.
func biTest(_ context.Context, _ *Runner, _ ioStreams, args []string) (int, error) {
	ok, err := evalTest(args)
	if err != nil {
		return 2, nil
	}
	return boolStatus(ok), nil
}

// biTestBracket implements `[ ... ]`: identical to test, but the final
// argument must be a literal "]".
func biTestBracket(ctx context.Context, r *Runner, strm ioStreams, args []string) (int, error) {
	if len(args) == 0 || args[len(args)-1] != "]" {
		return 2, nil
	}
	return biTest(ctx, r, strm, args[:len(args)-1])
}

func boolStatus(ok bool) int {
	if ok {
		return 0
	}
	return 1
}

func evalTest(args []string) (bool, error) {
	switch len(args) {
	case 0:
		return false, nil
	case 1:
		return args[0] != "", nil
	case 2:
		return evalUnary(args[0], args[1])
	case 3:
		return evalBinary(args[0], args[1], args[2])
	default:
		return false, nil
	}
}

func evalUnary(op, operand string) (bool, error) {
	switch op {
	case "!":
		ok, err := evalTest([]string{operand})
		return !ok, err
	case "-z":
		return operand == "", nil
	case "-n":
		return operand != "", nil
	case "-e", "-f":
		info, err := os.Stat(operand)
		if err != nil {
			return false, nil
		}
		if op == "-f" {
			return !info.IsDir(), nil
		}
		return true, nil
	case "-d":
		info, err := os.Stat(operand)
		return err == nil && info.IsDir(), nil
	case "-r", "-w", "-x":
		_, err := os.Stat(operand)
		return err == nil, nil
	}
	return false, nil
}

func evalBinary(lhs, op, rhs string) (bool, error) {
	switch op {
	case "=", "==":
		return lhs == rhs, nil
	case "!=":
		return lhs != rhs, nil
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		l, err := strconv.Atoi(lhs)
		if err != nil {
			return false, err
		}
		r, err := strconv.Atoi(rhs)
		if err != nil {
			return false, err
		}
		switch op {
		case "-eq":
			return l == r, nil
		case "-ne":
			return l != r, nil
		case "-lt":
			return l < r, nil
		case "-le":
			return l <= r, nil
		case "-gt":
			return l > r, nil
		default:
			return l >= r, nil
		}
	}
	return false, nil
}
