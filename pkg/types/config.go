package types

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}

// ScriptConfig describes how the external training and inference scripts
// are invoked. Zero values fall back to the defaults below.
type ScriptConfig struct {
	// Python is the interpreter used to launch the scripts.
	Python string `json:"python" yaml:"python"`
	// Train is the path to the training script.
	Train string `json:"train" yaml:"train"`
	// Infer is the path to the inference script.
	Infer string `json:"infer" yaml:"infer"`
}

// Default script invocation values.
const (
	DefaultPython      = "python3"
	DefaultTrainScript = "train.py"
	DefaultInferScript = "inference.py"
)

// Interpreter returns the configured interpreter or the default.
func (s ScriptConfig) Interpreter() string {
	if s.Python == "" {
		return DefaultPython
	}
	return s.Python
}

// TrainScript returns the configured training script path or the default.
func (s ScriptConfig) TrainScript() string {
	if s.Train == "" {
		return DefaultTrainScript
	}
	return s.Train
}

// InferScript returns the configured inference script path or the default.
func (s ScriptConfig) InferScript() string {
	if s.Infer == "" {
		return DefaultInferScript
	}
	return s.Infer
}
