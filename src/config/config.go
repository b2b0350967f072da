package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"FlightOnTime/src/model"

	"github.com/robfig/cron"
	"gopkg.in/yaml.v3"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataPath    string `json:"data_path" yaml:"data_path"`       // 历史航班数据集
	SheetName   string `json:"sheet_name" yaml:"sheet_name"`     // xlsx 数据集的工作表
	Encoding    string `json:"encoding" yaml:"encoding"`         // CSV 文本编码
	ModelPath   string `json:"model_path" yaml:"model_path"`     // 模型产出物
	FeatureDump string `json:"feature_dump" yaml:"feature_dump"` // 可选，特征矩阵导出为 xlsx

	LogName    string `json:"log_name" yaml:"log_name"`
	LogMaxSize string `json:"log_max_size" yaml:"log_max_size"`
	LogAddr    string `json:"log_addr" yaml:"log_addr"` // 实时日志 HTTP 地址，空则不启动

	Schedule      string   `json:"schedule" yaml:"schedule"`             // cron 表达式
	WatchDebounce Duration `json:"watch_debounce" yaml:"watch_debounce"` // 文件变更合并窗口

	Training model.Params `json:"training" yaml:"training"`
}

type DataConfig struct {
	FlightData map[string]string `json:"flightData" yaml:"flightData"`
}

var mu sync.RWMutex

// 默认值
const (
	DefaultDataPath   = "data/BrFlights2.csv"
	DefaultModelPath  = "models/flight_classifier_mvp.json"
	DefaultEncoding   = "latin1"
	DefaultLogName    = "app.log"
	DefaultLogMaxSize = "10 * 1024 * 1024"
	DefaultSchedule   = "0 0 3 * * *"
	DefaultDebounce   = Duration(2 * time.Second)
)

// Default 全部字段取默认值的配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig 读取主配置与列名配置，文件不存在时使用默认值，随后应用环境变量覆盖
func LoadConfig(folder, configFile, dataConfigFile string) (*Config, *DataConfig, error) {
	configData, err := readOptional(filepath.Join(folder, configFile))
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	dataConfigData, err := readOptional(filepath.Join(folder, dataConfigFile))
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, isYAML(configFile), cfgChan, errChan)
	go parseDataConfig(dataConfigData, isYAML(dataConfigFile), dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, dcfg, nil
}

// readOptional 文件不存在时返回 nil 数据
func readOptional(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func unmarshal(data []byte, asYAML bool, v any) error {
	if len(data) == 0 {
		return nil
	}
	if asYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

func parseConfig(data []byte, asYAML bool, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := unmarshal(data, asYAML, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, asYAML bool, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := unmarshal(data, asYAML, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	if dcfg.FlightData == nil {
		dcfg.FlightData = make(map[string]string)
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg  *Config
		dcfg *DataConfig
		errs []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, nil, combineErrors(errs)
	}
	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}
	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return errors.New(msg)
}

// applyEnv 环境变量覆盖文件中的值
func (c *Config) applyEnv() {
	envOverride(&c.DataPath, "FLIGHT_DATA_PATH")
	envOverride(&c.SheetName, "FLIGHT_SHEET_NAME")
	envOverride(&c.Encoding, "FLIGHT_ENCODING")
	envOverride(&c.ModelPath, "FLIGHT_MODEL_PATH")
	envOverride(&c.FeatureDump, "FLIGHT_FEATURE_DUMP")
	envOverride(&c.LogName, "FLIGHT_LOG_NAME")
	envOverride(&c.LogAddr, "FLIGHT_LOG_ADDR")
	envOverride(&c.Schedule, "FLIGHT_SCHEDULE")
	envOverrideInt(&c.Training.Iterations, "FLIGHT_ITERATIONS")
	envOverrideInt(&c.Training.Depth, "FLIGHT_DEPTH")
	envOverrideFloat(&c.Training.LearningRate, "FLIGHT_LEARNING_RATE")
}

func (c *Config) applyDefaults() {
	if c.DataPath == "" {
		c.DataPath = DefaultDataPath
	}
	if c.ModelPath == "" {
		c.ModelPath = DefaultModelPath
	}
	if c.Encoding == "" {
		c.Encoding = DefaultEncoding
	}
	if c.LogName == "" {
		c.LogName = DefaultLogName
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = DefaultLogMaxSize
	}
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.WatchDebounce <= 0 {
		c.WatchDebounce = DefaultDebounce
	}
	c.Training = c.Training.WithDefaults()
}

// Validate 检查取值范围
func (c *Config) Validate() error {
	if err := c.Training.Validate(); err != nil {
		return fmt.Errorf("invalid training config: %w", err)
	}
	if _, err := cron.Parse(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}
	return nil
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			*field = parsed
		}
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			*field = parsed
		}
	}
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON/YAML中的 "5m" 形式
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML 实现yaml.Unmarshaler接口
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (dc *DataConfig) GetFlightData(colName string) string {
	mu.RLock()
	defer mu.RUnlock()
	return dc.FlightData[colName]
}

func (dc *DataConfig) SetFlightData(colName, value string) {
	mu.Lock()
	defer mu.Unlock()
	if dc.FlightData == nil {
		dc.FlightData = make(map[string]string)
	}
	dc.FlightData[colName] = value
}
