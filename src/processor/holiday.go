package processor

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/br"
)

// HolidayCalendar 按日历日期判断是否节假日，忽略时分秒
type HolidayCalendar interface {
	IsHoliday(t time.Time) bool
}

// BrazilHolidays 巴西全国性法定节假日
//
// 狂欢节、圣体节不在全国法定假日之列；黑人觉醒日自2024年起计入。
type BrazilHolidays struct {
	cal *cal.BusinessCalendar
}

func NewBrazilHolidays() *BrazilHolidays {
	c := cal.NewBusinessCalendar()
	c.AddHoliday(
		br.AnoNovo,
		br.SextaFeiraSanta,
		br.Tiradentes,
		br.Trabalhador,
		br.Independencia,
		br.NossaSenhoraAparecida,
		br.Finados,
		br.Republica,
		br.ConscienciaNegra.Clone(&cal.Holiday{StartYear: 2024}),
		br.Natal,
	)
	return &BrazilHolidays{cal: c}
}

func (b *BrazilHolidays) IsHoliday(t time.Time) bool {
	_, ok := b.Name(t)
	return ok
}

// Name 返回节日名称
func (b *BrazilHolidays) Name(t time.Time) (string, bool) {
	actual, _, h := b.cal.IsHoliday(t)
	if !actual || h == nil {
		return "", false
	}
	return h.Name, true
}
