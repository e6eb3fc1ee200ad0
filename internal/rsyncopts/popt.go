package rsyncopts

import (
	"strconv"
	"strings"
)

// poptOption mirrors one row of a popt(3) option table: longName/shortName
// select the flag, argInfo says what kind of value (if any) it takes, arg is
// the destination variable (nil if the option should instead be returned as a
// special case to the caller of poptGetNextOpt), and val is either the value
// to store (POPT_ARG_VAL, POPT_BIT_SET) or the code returned when arg is nil.
type poptOption struct {
	longName  string
	shortName string
	argInfo   int
	arg       any
	val       int
}

const (
	POPT_ARG_NONE = iota
	POPT_ARG_STRING
	POPT_ARG_INT
	POPT_ARG_VAL
	POPT_BIT_SET
)

// PoptError reports a command-line parsing failure, mirroring the handful of
// popt(3) error codes our callers inspect.
type PoptError struct {
	Errno      int
	Option     string
	Msg        string
	DaemonMode bool
}

func (e *PoptError) Error() string {
	if e.Msg != "" {
		return e.Option + ": " + e.Msg
	}
	return e.Option
}

const (
	POPT_ERROR_BADOPT = -iota - 1
	POPT_ERROR_NOARG
	POPT_ERROR_BADNUMBER
)

// Context carries the state of one command-line parse: the option table in
// effect, the remaining argv, and the non-option arguments collected so far.
// rsync/options.c:parse_arguments re-enters this with a different table when
// --daemon switches into daemon-option parsing, which is why pos/bundle live
// here rather than as locals in ParseArguments.
type Context struct {
	Options *Options
	table   []poptOption

	args []string
	pos  int
	// bundle holds the not-yet-consumed characters of a short-option group
	// such as "-vvv" or "-av", processed one option per poptGetNextOpt call.
	bundle      string
	stopOptions bool
	lastOptArg  string

	RemainingArgs []string
}

func (pc *Context) findLong(name string) *poptOption {
	for i := range pc.table {
		if pc.table[i].longName == name {
			return &pc.table[i]
		}
	}
	return nil
}

func (pc *Context) findShort(name string) *poptOption {
	for i := range pc.table {
		if pc.table[i].shortName == name {
			return &pc.table[i]
		}
	}
	return nil
}

// poptGetOptArg returns the string value consumed by the most recently
// returned POPT_ARG_STRING option whose arg was nil (e.g. --info, --debug),
// for special-case handlers that need the raw argument.
func (pc *Context) poptGetOptArg() string {
	return pc.lastOptArg
}

// applyOpt stores val (already extracted from the command line, if opt takes
// one) into opt.arg when present, returning the code to surface to the
// caller otherwise. An option with a non-nil arg is always fully handled
// here and never surfaces a special case, matching every table entry in this
// package that pairs a destination pointer with a non-zero val (e.g.
// --modify-window).
func (pc *Context) applyOpt(opt *poptOption, val string) (code int, hasCode bool, err error) {
	switch opt.argInfo {
	case POPT_ARG_NONE:
		if opt.arg != nil {
			if p, ok := opt.arg.(*int); ok {
				*p = 1
			}
			return 0, false, nil
		}

	case POPT_ARG_VAL:
		if opt.arg != nil {
			if p, ok := opt.arg.(*int); ok {
				*p = opt.val
			}
			return 0, false, nil
		}

	case POPT_BIT_SET:
		if opt.arg != nil {
			if p, ok := opt.arg.(*int); ok {
				*p |= opt.val
			}
			return 0, false, nil
		}

	case POPT_ARG_STRING:
		pc.lastOptArg = val
		if opt.arg != nil {
			if p, ok := opt.arg.(*string); ok {
				*p = val
			}
			return 0, false, nil
		}

	case POPT_ARG_INT:
		pc.lastOptArg = val
		n, convErr := strconv.Atoi(val)
		if convErr != nil {
			name := opt.longName
			if name == "" {
				name = opt.shortName
			}
			return 0, false, &PoptError{Errno: POPT_ERROR_BADNUMBER, Option: "--" + name, Msg: "expected a number, got " + strconv.Quote(val)}
		}
		if opt.arg != nil {
			if p, ok := opt.arg.(*int); ok {
				*p = n
			}
			return 0, false, nil
		}
	}

	if opt.val != 0 {
		return opt.val, true, nil
	}
	return 0, false, nil
}

func takesArg(argInfo int) bool {
	return argInfo == POPT_ARG_STRING || argInfo == POPT_ARG_INT
}

// poptGetNextOpt returns the next option's val (when its table entry has a
// nil arg) or -1 once every command-line token has been consumed. Options
// with a non-nil arg are applied directly and never returned; callers only
// see the special cases their table declares with arg == nil.
func (pc *Context) poptGetNextOpt() (int, error) {
	for {
		if pc.bundle != "" {
			c := pc.bundle[:1]
			opt := pc.findShort(c)
			if opt == nil {
				bad := "-" + c
				pc.bundle = ""
				return 0, &PoptError{Errno: POPT_ERROR_BADOPT, Option: bad, Msg: "unknown option"}
			}

			var val string
			if takesArg(opt.argInfo) {
				if len(pc.bundle) > 1 {
					val = pc.bundle[1:]
					pc.bundle = ""
				} else {
					pc.bundle = ""
					if pc.pos >= len(pc.args) {
						return 0, &PoptError{Errno: POPT_ERROR_NOARG, Option: "-" + c, Msg: "missing argument"}
					}
					val = pc.args[pc.pos]
					pc.pos++
				}
			} else {
				pc.bundle = pc.bundle[1:]
			}

			code, has, err := pc.applyOpt(opt, val)
			if err != nil {
				return 0, err
			}
			if has {
				return code, nil
			}
			continue
		}

		if pc.pos >= len(pc.args) {
			return -1, nil
		}
		arg := pc.args[pc.pos]

		if pc.stopOptions {
			pc.RemainingArgs = append(pc.RemainingArgs, arg)
			pc.pos++
			continue
		}
		if arg == "--" {
			pc.stopOptions = true
			pc.pos++
			continue
		}
		if arg == "-" || len(arg) == 0 || arg[0] != '-' {
			// No option permutation: the first non-option argument and
			// everything after it are the source/destination paths.
			pc.stopOptions = true
			pc.RemainingArgs = append(pc.RemainingArgs, arg)
			pc.pos++
			continue
		}

		pc.pos++
		if strings.HasPrefix(arg, "--") {
			name := arg[2:]
			var val string
			hasVal := false
			if idx := strings.IndexByte(name, '='); idx >= 0 {
				hasVal = true
				val = name[idx+1:]
				name = name[:idx]
			}
			opt := pc.findLong(name)
			if opt == nil {
				return 0, &PoptError{Errno: POPT_ERROR_BADOPT, Option: "--" + name, Msg: "unknown option"}
			}
			if takesArg(opt.argInfo) && !hasVal {
				if pc.pos >= len(pc.args) {
					return 0, &PoptError{Errno: POPT_ERROR_NOARG, Option: "--" + name, Msg: "missing argument"}
				}
				val = pc.args[pc.pos]
				pc.pos++
			}
			code, has, err := pc.applyOpt(opt, val)
			if err != nil {
				return 0, err
			}
			if has {
				return code, nil
			}
			continue
		}

		pc.bundle = arg[1:]
	}
}
