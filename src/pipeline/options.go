package pipeline

import (
	"path/filepath"
	"strings"

	"FlightOnTime/src/config"
	"FlightOnTime/src/processor"
)

// OptionsFrom 由配置文件构造运行参数
func OptionsFrom(cfg *config.Config, dcfg *config.DataConfig) Options {
	opts := Options{
		DataPath:    cfg.DataPath,
		SheetName:   cfg.SheetName,
		Encoding:    cfg.Encoding,
		ModelPath:   cfg.ModelPath,
		FeatureDump: cfg.FeatureDump,
		Columns:     processor.DefaultColumns(),
		Training:    cfg.Training,
	}
	if dcfg != nil {
		opts.Columns = processor.ColumnsFrom(dcfg)
	}
	return opts
}

func isXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}
