package pipeline

import (
	"fmt"
	"time"

	"FlightOnTime/src/artifact"
	"FlightOnTime/src/datasource/file"
	"FlightOnTime/src/model"
	"FlightOnTime/src/processor"
	"FlightOnTime/src/utils"
)

// Logger 流水线使用的日志接口，storage.Logger 满足该接口
type Logger interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// Options 一次训练运行的全部输入
type Options struct {
	DataPath    string
	SheetName   string
	Encoding    string
	ModelPath   string
	FeatureDump string // 非空时把特征矩阵导出为 xlsx
	Columns     processor.Columns
	Training    model.Params
	Calendar    processor.HolidayCalendar
}

// Report 各阶段统计与训练结果
type Report struct {
	Clean    processor.CleanStats
	Derive   processor.DeriveStats
	Classes  map[string]int // 各类别字段的取值个数
	Summary  model.Summary
	Trees    int
	Artifact string
	Elapsed  time.Duration
}

// Run 执行一次完整训练：读取 → 清洗 → 派生 → 编码 → 训练 → 导出
//
// 任一步失败都不会写出产出物。
func Run(opts Options, logger Logger) (*Report, error) {
	start := time.Now()
	report := &Report{}
	if opts.Columns == (processor.Columns{}) {
		opts.Columns = processor.DefaultColumns()
	}

	// 1. 读取数据集
	if err := file.EnsureInput(opts.DataPath); err != nil {
		return nil, err
	}
	df, err := file.Load(opts.DataPath, opts.SheetName, opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if isXLSX(opts.DataPath) {
		df = file.NormalizeExcelTimes(df,
			opts.Columns.ScheduledDeparture,
			opts.Columns.ActualDeparture,
			opts.Columns.ActualArrival)
	}
	logger.Info(fmt.Sprintf("数据集已读取: %s (%d 行, %d 列)", opts.DataPath, df.Nrow(), df.Ncol()))

	// 2. 清洗
	raw, cs, err := processor.NewRecordCleaner(opts.Columns).Clean(df)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	report.Clean = cs
	logger.Info(fmt.Sprintf("清洗完成: 读取 %d, 重复 %d, 非已执行 %d, 时间缺失 %d, 保留 %d",
		cs.Read, cs.Duplicates, cs.NotCompleted, cs.MissingTimestamps, cs.Kept))

	// 3. 特征派生
	records, ds := processor.NewFeatureDeriver(opts.Calendar).Derive(raw)
	report.Derive = ds
	logger.Info(fmt.Sprintf("特征派生完成: 缺少坐标 %d, 时间无法解析 %d, 区间外 %d, 保留 %d, 晚点 %d",
		ds.MissingDistance, ds.BadTimestamp, ds.OutOfBand, ds.Kept, ds.Positives))
	if ds.BadTimestamp > 0 {
		logger.Warning(fmt.Sprintf("%d 条记录的时间字段无法解析", ds.BadTimestamp))
	}

	// 4. 类别编码与特征矩阵
	es := processor.FitEncoders(records)
	report.Classes = map[string]int{
		processor.FieldAirline:     es.Airline.Len(),
		processor.FieldOrigin:      es.Origin.Len(),
		processor.FieldDestination: es.Destination.Len(),
	}
	m, err := processor.BuildMatrix(records, es)
	if err != nil {
		return nil, fmt.Errorf("build matrix: %w", err)
	}
	if opts.FeatureDump != "" {
		if err := utils.SaveToExcel(m.DataFrame(), opts.FeatureDump, "features"); err != nil {
			logger.Warning(fmt.Sprintf("特征矩阵导出失败: %v", err))
		} else {
			logger.Info("特征矩阵已导出: " + opts.FeatureDump)
		}
	}

	// 5. 训练
	trainer := model.NewTrainer(opts.Training)
	p := trainer.Params()
	logger.Info(fmt.Sprintf("开始训练: %d 行, 迭代 %d, 学习率 %g, 深度 %d, 类别权重 %s, 随机种子 %d",
		m.Rows(), p.Iterations, p.LearningRate, p.Depth, p.ClassWeights, *p.RandomSeed))
	clf, err := trainer.Fit(m.X, m.Y)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	report.Trees = len(clf.Trees)

	s := model.Summarize(clf, m.X, m.Y, artifact.RecommendedThreshold)
	report.Summary = s
	logger.Info(fmt.Sprintf("训练集指标(阈值 %.2f，仅供参考): recall %.3f, precision %.3f, accuracy %.3f, 平均概率 %.3f",
		s.Threshold, s.Recall, s.Precision, s.Accuracy, s.MeanProba))

	// 6. 导出
	a := artifact.Build(clf, es, m, opts.DataPath, opts.Calendar)
	if err := a.Export(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	report.Artifact = opts.ModelPath
	report.Elapsed = time.Since(start)
	logger.Info(fmt.Sprintf("模型已保存: %s (阈值 %.2f, 耗时 %v)",
		opts.ModelPath, a.Metadata.Threshold, report.Elapsed.Round(time.Millisecond)))
	return report, nil
}
