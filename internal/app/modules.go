package app

import (
	"github.com/vk/coingraph/internal/registry"
	"github.com/vk/coingraph/modules/coincap"
	"github.com/vk/coingraph/modules/coinmarketcap"
	"github.com/vk/coingraph/modules/env_vars"
	"github.com/vk/coingraph/modules/llm"
	"github.com/vk/coingraph/modules/pricestream"
	"github.com/vk/coingraph/modules/print"
	"github.com/vk/coingraph/modules/report"
)

// coreModules is the default set of agent modules compiled into the binary.
var coreModules = []registry.Module{
	&coincap.Module{},
	&coinmarketcap.Module{},
	&env_vars.Module{},
	&llm.Module{},
	&pricestream.Module{},
	&print.Module{},
	&report.Module{},
}
