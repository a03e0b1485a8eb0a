// Package config loads and validates the run control file (all.ctrl by
// convention): key=value lines with # comments. The parsed RunConfig is
// passed explicitly to every component; nothing else in the program reads
// the control file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ConfigError reports a missing or malformed control-file value. It is
// fatal: callers abort before any submission happens.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// RunConfig is the validated contents of the control file. Read-only after
// Load; Update rewrites the file on disk for a follow-up round but callers
// are expected to re-Load rather than mutate in place.
type RunConfig struct {
	SMILESFile     string
	NumMols        int
	Receptor       string
	Exhaustiveness int
	Center         [3]float64
	Size           [3]float64
	MaxNumJobs     int
	UseBalancer    bool
	ScoreThreshold float64

	DataDir       string
	QVinaBin      string
	ObabelTimeout time.Duration

	// sbatch script knobs, all optional.
	SlurmAccount string
	SlurmTime    string
	SlurmMem     string
	SlurmModules []string

	path string
}

// Path returns the control file this config was loaded from.
func (c *RunConfig) Path() string { return c.path }

// Load parses and validates the control file at path.
func Load(path string) (*RunConfig, error) {
	vals, err := godotenv.Read(path)
	if err != nil {
		return nil, &ConfigError{Key: path, Reason: err.Error()}
	}

	p := parser{vals: vals}
	cfg := &RunConfig{
		SMILESFile:     p.str("SMILES_FILES"),
		NumMols:        p.num("NUM_MOLS"),
		Receptor:       p.strDefault("RECEPTOR_LOCATION", "./DATA/docking_receptor.pdbqt"),
		Exhaustiveness: p.numDefault("EXHAUSTIVENESS", 1),
		MaxNumJobs:     p.num("MAX_NUM_JOBS"),
		UseBalancer:    p.boolean("USE_LOAD_BALANCER"),
		ScoreThreshold: p.float("DOCKING_SCORE_THRESHOLD"),
		DataDir:        p.strDefault("DATA_DIR", "./DATA"),
		QVinaBin:       p.strDefault("QVINA_LOCATION", "./DATA/qvina"),
		ObabelTimeout:  time.Duration(p.numDefault("OBABEL_TIMEOUT_SECONDS", 120)) * time.Second,
		SlurmAccount:   p.strDefault("SLURM_ACCOUNT", ""),
		SlurmTime:      p.strDefault("SLURM_TIME", "12:00:00"),
		SlurmMem:       p.strDefault("SLURM_MEM", "7000M"),
		path:           path,
	}
	for i, k := range [3]string{"CENTER_X", "CENTER_Y", "CENTER_Z"} {
		cfg.Center[i] = p.float(k)
	}
	for i, k := range [3]string{"SIZE_X", "SIZE_Y", "SIZE_Z"} {
		cfg.Size[i] = p.float(k)
	}
	if mods := p.strDefault("SLURM_MODULES", ""); mods != "" {
		for _, m := range strings.Split(mods, ",") {
			if m = strings.TrimSpace(m); m != "" {
				cfg.SlurmModules = append(cfg.SlurmModules, m)
			}
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *RunConfig) validate() error {
	if c.SMILESFile == "" {
		return &ConfigError{Key: "SMILES_FILES", Reason: "must be set"}
	}
	if c.MaxNumJobs <= 0 {
		return &ConfigError{Key: "MAX_NUM_JOBS", Reason: "must be > 0"}
	}
	if c.Exhaustiveness <= 0 {
		return &ConfigError{Key: "EXHAUSTIVENESS", Reason: "must be > 0"}
	}
	for i, k := range [3]string{"SIZE_X", "SIZE_Y", "SIZE_Z"} {
		if c.Size[i] <= 0 {
			return &ConfigError{Key: k, Reason: "box size must be > 0"}
		}
	}
	return nil
}

// Update rewrites NUM_MOLS, SMILES_FILES and MAX_NUM_JOBS in the control
// file, leaving every other line (comments included) untouched. Used by the
// consolidator to stage the next round over the unfinished molecules.
func (c *RunConfig) Update(numMols int, smilesFile string, maxJobs int) error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return &ConfigError{Key: c.path, Reason: err.Error()}
	}
	repl := map[string]string{
		"NUM_MOLS":     strconv.Itoa(numMols),
		"SMILES_FILES": smilesFile,
		"MAX_NUM_JOBS": strconv.Itoa(maxJobs),
	}
	lines := strings.Split(string(data), "\n")
	seen := make(map[string]bool)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, _, ok := strings.Cut(trimmed, "=")
		key = strings.TrimSpace(key)
		if !ok {
			continue
		}
		if v, want := repl[key]; want {
			lines[i] = key + "=" + v
			seen[key] = true
		}
	}
	for key, v := range repl {
		if !seen[key] {
			lines = append(lines, key+"="+v)
		}
	}
	out := strings.Join(lines, "\n")
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if err := os.WriteFile(c.path, []byte(out), 0644); err != nil {
		return &ConfigError{Key: c.path, Reason: err.Error()}
	}
	return nil
}

// parser accumulates the first error seen so Load can report one failure
// with its key instead of a generic message.
type parser struct {
	vals map[string]string
	err  error
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.vals[key]
	return strings.TrimSpace(v), ok
}

func (p *parser) str(key string) string {
	v, ok := p.raw(key)
	if !ok || v == "" {
		p.fail(key, "must be set")
	}
	return v
}

func (p *parser) strDefault(key, def string) string {
	if v, ok := p.raw(key); ok && v != "" {
		return v
	}
	return def
}

func (p *parser) num(key string) int {
	v, ok := p.raw(key)
	if !ok {
		p.fail(key, "must be set")
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, "not an integer: "+v)
	}
	return n
}

func (p *parser) numDefault(key string, def int) int {
	v, ok := p.raw(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, "not an integer: "+v)
	}
	return n
}

func (p *parser) float(key string) float64 {
	v, ok := p.raw(key)
	if !ok {
		p.fail(key, "must be set")
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, "not a number: "+v)
	}
	return f
}

func (p *parser) boolean(key string) bool {
	v, ok := p.raw(key)
	if !ok {
		p.fail(key, "must be set")
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, "not a boolean: "+v)
	}
	return b
}

func (p *parser) fail(key, reason string) {
	if p.err == nil {
		p.err = &ConfigError{Key: key, Reason: reason}
	}
}
