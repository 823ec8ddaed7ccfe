package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/go-errors/errors"
	"github.com/hscells/funnel"
	"github.com/hscells/funnel/model"
	"github.com/hscells/funnel/output"
	"github.com/hscells/funnel/source"
)

var (
	name    = "funnel"
	version = "29.Aug.2026"
	author  = "Harry Scells"
)

type args struct {
	Config string `help:"YAML experiment file; flags take precedence" arg:"-c"`

	Source string   `help:"record source (csv/mysql/elasticsearch)" arg:"-s"`
	Path   string   `help:"path to a CSV file" arg:"-p"`
	DSN    string   `help:"MySQL DSN or mysql:// URL"`
	Table  string   `help:"MySQL table holding subject records"`
	Hosts  []string `help:"Elasticsearch hosts"`
	Index  string   `help:"Elasticsearch index holding subject records"`
	Group  string   `help:"restrict to a single group" arg:"-g"`

	Model     string   `help:"model to fit (step/kaplan-meier/exponential/gamma/weibull)" arg:"-m"`
	Bootstrap int      `help:"bootstrap ensemble size; 0 disables resampling" arg:"-b"`
	Lambda    *float64 `help:"pin the hazard rate instead of fitting it"`
	K         *float64 `help:"pin the shape parameter instead of fitting it"`

	MinGroupSize int    `help:"drop groups with fewer subjects"`
	MaxGroups    int    `help:"keep only the largest groups"`
	CacheDir     string `help:"directory for the persistent fit cache"`

	Chart string `help:"write a PNG chart to this path"`
	CSV   string `help:"write curves as CSV to this path (- for stdout)"`
	JSON  string `help:"write curves as JSON to this path (- for stdout)"`
}

func (args) Version() string {
	return version
}

func (args) Description() string {
	return fmt.Sprintf(`%s
@ %s
# %s`, name, author, version)
}

func main() {
	var args args
	arg.MustParse(&args)

	if len(args.Config) > 0 {
		c, err := loadConfig(args.Config)
		if err != nil {
			log.Fatalln(err)
		}
		c.apply(&args)
	}

	src, err := recordSource(args)
	if err != nil {
		log.Fatalln(err)
	}
	factory, err := modelFactory(args)
	if err != nil {
		log.Fatalln(err)
	}

	components := []func() interface{}{
		funnel.Formatters(formatters(args)...),
	}
	if args.Bootstrap > 0 {
		components = append(components, funnel.Bootstrap(args.Bootstrap))
	}
	if len(args.CacheDir) > 0 {
		components = append(components, funnel.FitCache(model.NewDiskvParamsCache(args.CacheDir)))
	}

	p := funnel.NewPipeline(src, factory, components...)
	p.GroupMinSize = args.MinGroupSize
	p.MaxGroups = args.MaxGroups
	p.Progress = true

	c := make(chan funnel.Result)
	go p.Execute(c)

	var curves []output.Curve
	var outputs []string
	unit := "Days"
	for result := range c {
		switch result.Type {
		case funnel.CurveResult:
			curves = append(curves, *result.Curve)
			unit = result.Unit
		case funnel.OutputResult:
			outputs = append(outputs, result.Output)
		case funnel.Error:
			log.Fatalln(result.Error)
		}
	}

	if err := writeOutputs(args, outputs); err != nil {
		log.Fatalln(err)
	}
	if len(args.Chart) > 0 {
		f, err := os.Create(args.Chart)
		if err != nil {
			log.Fatalln(err)
		}
		if err := output.RenderChart(curves, "Conversion", unit, f); err != nil {
			log.Fatalln(err)
		}
		if err := f.Close(); err != nil {
			log.Fatalln(err)
		}
	}
}

func recordSource(args args) (source.RecordSource, error) {
	switch args.Source {
	case "csv":
		return source.CSVSource{Path: args.Path}, nil
	case "mysql":
		return source.MySQLSource{DSN: args.DSN, Table: args.Table}, nil
	case "elasticsearch":
		return &source.ElasticsearchSource{Hosts: args.Hosts, Index: args.Index, Group: args.Group}, nil
	}
	return nil, errors.Errorf("unrecognised source %q", args.Source)
}

func modelFactory(args args) (func() model.Model, error) {
	lambda := model.Fixed{}
	if args.Lambda != nil {
		lambda = model.FixedAt(*args.Lambda)
	}
	shape := model.Fixed{}
	if args.K != nil {
		shape = model.FixedAt(*args.K)
	}
	switch args.Model {
	case "step", "":
		return func() model.Model { return model.NewStepFunction() }, nil
	case "kaplan-meier":
		return func() model.Model { return model.NewKaplanMeier() }, nil
	case "exponential":
		return func() model.Model { return &model.Exponential{Rate: lambda} }, nil
	case "gamma":
		return func() model.Model { return &model.Gamma{Rate: lambda, Shape: shape} }, nil
	case "weibull":
		return func() model.Model { return &model.Weibull{Rate: lambda, Shape: shape} }, nil
	}
	return nil, errors.Errorf("unrecognised model %q", args.Model)
}

// formatters builds the formatter list in the same order writeOutputs
// consumes the pipeline's formatted outputs.
func formatters(args args) []output.Formatter {
	var fs []output.Formatter
	if len(args.CSV) > 0 {
		fs = append(fs, output.CSVFormatter)
	}
	if len(args.JSON) > 0 {
		fs = append(fs, output.JSONFormatter)
	}
	return fs
}

func writeOutputs(args args, outputs []string) error {
	var paths []string
	if len(args.CSV) > 0 {
		paths = append(paths, args.CSV)
	}
	if len(args.JSON) > 0 {
		paths = append(paths, args.JSON)
	}
	for i, path := range paths {
		if i >= len(outputs) {
			break
		}
		if path == "-" {
			if _, err := os.Stdout.WriteString(outputs[i]); err != nil {
				return err
			}
			continue
		}
		if err := ioutil.WriteFile(path, []byte(outputs[i]), 0644); err != nil {
			return err
		}
	}
	return nil
}
