package producer

import (
	"os"
	"sync/atomic"
)

// The process-name and module-name registers tag every slot a producer
// writes (the process_name/module_name fixed fields). Both are
// process-wide atomics: process_name starts as the basename of argv[0]
// and module_name starts empty, so a producer that never calls the
// setters still emits a usable process tag and the decoder's NULL
// substitution covers the module field.
var (
	processNameReg atomic.Value
	moduleNameReg  atomic.Value
)

func init() {
	processNameReg.Store(argvBasename())
	moduleNameReg.Store("")
}

// SetProcessName overrides the process tag for every subsequent slot
// written from this process. Only the first 4 characters are meaningful
// in the decoded display_name.
func SetProcessName(name string) {
	processNameReg.Store(name)
}

// SetModuleName overrides the module tag for every subsequent slot
// written from this process. Only the first 6 characters are meaningful
// in the decoded display_name.
func SetModuleName(name string) {
	moduleNameReg.Store(name)
}

func processNameTag() string {
	return processNameReg.Load().(string)
}

func moduleNameTag() string {
	return moduleNameReg.Load().(string)
}

func argvBasename() string {
	name := os.Args[0]
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			return name[i+1:]
		}
	}
	return name
}
