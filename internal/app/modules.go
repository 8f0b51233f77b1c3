package app

import (
	"io"

	"github.com/specialistvlad/burstflow/internal/registry"
	"github.com/specialistvlad/burstflow/modules/arith"
	"github.com/specialistvlad/burstflow/modules/env"
	"github.com/specialistvlad/burstflow/modules/http_request"
	"github.com/specialistvlad/burstflow/modules/print"
	"github.com/specialistvlad/burstflow/modules/socketio"
)

// coreModules is the definitive list of all modules that are compiled into
// the burstflow binary. print writes to outW.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&arith.Module{},
		&env.Module{},
		&print.Module{Out: outW},
		&http_request.Module{},
		&socketio.Module{},
	}
}
