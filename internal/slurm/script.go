package slurm

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/alessio/shellescape"
)

// ArraySpec describes an array submission: one task per partition file,
// each running the worker binary with its own SLURM_ARRAY_TASK_ID.
type ArraySpec struct {
	JobName   string
	TaskCount int
	WorkerBin string
	CtrlFile  string
	Account   string
	Time      string
	Mem       string
	Modules   []string
}

// TaskSpec describes a single-task replacement submission for one
// partition index.
type TaskSpec struct {
	JobName   string
	TaskIndex int
	WorkerBin string
	CtrlFile  string
	Account   string
	Time      string
	Mem       string
	Modules   []string
}

const arrayScriptTmpl = `#!/bin/bash
{{- if .Account}}
#SBATCH --account={{.Account}}
{{- end}}
#SBATCH --job-name={{.JobName}}
#SBATCH --array=1-{{.TaskCount}}
#SBATCH --mem={{.Mem}}
#SBATCH --time={{.Time}}
#SBATCH -e stderr_%a.txt
#SBATCH -o stdout_%a.txt
#SBATCH --open-mode=append
#SBATCH --export=NONE
{{range .Modules}}
module load {{.}}
{{- end}}

{{.WorkerBin | bash_escape}} -ctrl {{.CtrlFile | bash_escape}} -task "$SLURM_ARRAY_TASK_ID"
`

const taskScriptTmpl = `#!/bin/bash
{{- if .Account}}
#SBATCH --account={{.Account}}
{{- end}}
#SBATCH --job-name={{.JobName}}
#SBATCH --mem={{.Mem}}
#SBATCH --time={{.Time}}
#SBATCH -e stderr_{{.TaskIndex}}.txt
#SBATCH -o stdout_{{.TaskIndex}}.txt
#SBATCH --open-mode=append
#SBATCH --export=NONE
{{range .Modules}}
module load {{.}}
{{- end}}

{{.WorkerBin | bash_escape}} -ctrl {{.CtrlFile | bash_escape}} -task {{.TaskIndex}}
`

func parseScriptTmpl(name, body string) *template.Template {
	return template.Must(template.New(name).Funcs(template.FuncMap{
		"bash_escape": func(s interface{}) string {
			return shellescape.Quote(fmt.Sprint(s))
		},
	}).Parse(body))
}

var (
	arrayScript = parseScriptTmpl("array", arrayScriptTmpl)
	taskScript  = parseScriptTmpl("task", taskScriptTmpl)
)

// RenderArrayScript renders the sbatch script for an array submission.
func RenderArrayScript(spec ArraySpec) (string, error) {
	if spec.TaskCount <= 0 {
		return "", fmt.Errorf("slurm: array task count must be > 0, got %d", spec.TaskCount)
	}
	var b strings.Builder
	if err := arrayScript.Execute(&b, spec); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderTaskScript renders the sbatch script for a single-task resubmit.
func RenderTaskScript(spec TaskSpec) (string, error) {
	if spec.TaskIndex <= 0 {
		return "", fmt.Errorf("slurm: task index must be > 0, got %d", spec.TaskIndex)
	}
	var b strings.Builder
	if err := taskScript.Execute(&b, spec); err != nil {
		return "", err
	}
	return b.String(), nil
}
