package main

import (
	"errors"
	"fmt"
	"sync"

	"FlightOnTime/src/pipeline"
	"FlightOnTime/src/storage"
)

var errBusy = errors.New("上一次训练仍在进行，跳过本次")

// runner 串行执行训练，同一时刻最多一次运行
type runner struct {
	opts       pipeline.Options
	logger     *storage.Logger
	logMaxSize string
	mu         sync.Mutex
	train      func(pipeline.Options, pipeline.Logger) (*pipeline.Report, error)
}

func newRunner(opts pipeline.Options, logger *storage.Logger, logMaxSize string) *runner {
	return &runner{
		opts:       opts,
		logger:     logger,
		logMaxSize: logMaxSize,
		train:      pipeline.Run,
	}
}

func (r *runner) run() error {
	if !r.mu.TryLock() {
		r.logger.Warning(errBusy.Error())
		return errBusy
	}
	defer r.mu.Unlock()

	_, err := r.train(r.opts, r.logger)
	if err != nil {
		err = fmt.Errorf("训练失败: %w", err)
	}

	if _, rerr := r.logger.CheckRotate(r.logMaxSize); rerr != nil {
		r.logger.Warning("日志轮转失败: " + rerr.Error())
	}
	return err
}
