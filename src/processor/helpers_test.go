package processor

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const tsLayout = "2006-01-02T15:04:05Z"

var header = []string{
	"Voos", "Companhia.Aerea", "Situacao.Voo",
	"Aeroporto.Origem", "Aeroporto.Destino",
	"LatOrig", "LongOrig", "LatDest", "LongDest",
	"Partida.Prevista", "Partida.Real", "Chegada.Real",
}

// 圣保罗(GRU) -> 里约(GIG)
var spToRio = [4]string{"-23.5505", "-46.6333", "-22.9068", "-43.1729"}

type rowFixture struct {
	id       int
	airline  string
	status   string
	sched    time.Time
	delay    time.Duration
	duration time.Duration
	coords   [4]string
}

func (r rowFixture) record() []string {
	dep := r.sched.Add(r.delay)
	arr := dep.Add(r.duration)
	airline := r.airline
	if airline == "" {
		airline = "GOL"
	}
	return []string{
		fmt.Sprintf("G3%04d", r.id), airline, r.status,
		"SBGR", "SBGL",
		r.coords[0], r.coords[1], r.coords[2], r.coords[3],
		r.sched.Format(tsLayout), dep.Format(tsLayout), arr.Format(tsLayout),
	}
}

func validRow(id int, sched time.Time, delay time.Duration) rowFixture {
	return rowFixture{
		id:       id,
		status:   StatusCompleted,
		sched:    sched,
		delay:    delay,
		duration: 55 * time.Minute,
		coords:   spToRio,
	}
}

func frame(rows ...[]string) dataframe.DataFrame {
	records := append([][]string{header}, rows...)
	return dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{"", "NA", "NaN"}),
	)
}
