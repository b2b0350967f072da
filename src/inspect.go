package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"FlightOnTime/src/artifact"
	"FlightOnTime/src/utils"
)

// query inspect 模式下的单条预测输入
type query struct {
	airline     string
	origin      string
	destination string
	distanceKm  float64
	scheduled   string
}

func (q query) empty() bool {
	return q.airline == "" && q.origin == "" && q.destination == "" && q.scheduled == ""
}

// inspect 打印产出物的元数据、特征顺序和编码表规模，给定航班信息时输出预测
func inspect(w io.Writer, path string, q query) error {
	a, err := artifact.Load(path)
	if err != nil {
		return err
	}

	m := a.Metadata
	fmt.Fprintf(w, "artifact:   %s\n", path)
	fmt.Fprintf(w, "autor:      %s\n", m.Author)
	fmt.Fprintf(w, "versao:     %s\n", m.Version)
	fmt.Fprintf(w, "tecnologia: %s\n", m.Technique)
	fmt.Fprintf(w, "threshold:  %.2f\n", m.Threshold)
	fmt.Fprintf(w, "nota:       %s\n", m.Note)
	fmt.Fprintf(w, "treinado:   %s (%d amostras, %d positivos)\n",
		m.TrainedAt.Format("2006-01-02 15:04:05"), m.Samples, m.Positives)
	fmt.Fprintf(w, "arvores:    %d\n", len(a.Model.Trees))
	fmt.Fprintf(w, "features:   %s\n", strings.Join(a.Features, ", "))

	fields := make([]string, 0, len(a.Encoders))
	for f := range a.Encoders {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "encoder %-10s %d classes\n", f, len(a.Encoders[f]))
	}

	if q.empty() {
		return nil
	}
	sched, ok := utils.ParseTime(q.scheduled)
	if !ok {
		return fmt.Errorf("invalid scheduled time %q", q.scheduled)
	}
	vector, err := a.EncodeRecord(artifact.Flight{
		Airline:            q.airline,
		Origin:             q.origin,
		Destination:        q.destination,
		DistanceKm:         q.distanceKm,
		ScheduledDeparture: sched,
	})
	if err != nil {
		return err
	}
	prob, late, err := a.Predict(vector)
	if err != nil {
		return err
	}
	verdict := "pontual"
	if late {
		verdict = "atrasado"
	}
	fmt.Fprintf(w, "previsao:   %.4f -> %s\n", prob, verdict)
	return nil
}
