package drawer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-stagerun/internal/store"
	"github.com/askiada/go-stagerun/pkg/pipeline/measure"
	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// DOTDrawer draws the pipeline plan as a Graphviz DOT graph.
type DOTDrawer struct {
	graph    graph.Graph[string, string]
	store    store.CustomStore[string, string]
	writer   io.Writer
	fileName string
}

func newDOTDrawer() *DOTDrawer {
	st := store.NewMemoryStore[string, string]()

	return &DOTDrawer{
		store: st,
		graph: graph.NewWithStore(graph.StringHash, st, graph.Directed(), graph.Acyclic(), graph.PreventCycles()),
	}
}

// NewDOTDrawer creates a drawer writing the graph to fileName.
func NewDOTDrawer(fileName string) *DOTDrawer {
	d := newDOTDrawer()
	d.fileName = fileName

	return d
}

// NewDOTWriter creates a drawer writing the graph to wrt.
func NewDOTWriter(wrt io.Writer) *DOTDrawer {
	d := newDOTDrawer()
	d.writer = wrt

	return d
}

// AddStep adds a node to the pipeline graph.
func (d *DOTDrawer) AddStep(name string, options ...func(*graph.VertexProperties)) error {
	err := d.graph.AddVertex(name, options...)
	if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return errors.Wrap(err, "unable to add vertex")
	}

	return nil
}

// AddLink adds a link between parent and child nodes.
func (d *DOTDrawer) AddLink(parentName, childName string) error {
	err := d.graph.AddEdge(parentName, childName)
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentName, childName)
	}

	return nil
}

// Draw writes the DOT graph to the file or the writer of the drawer.
func (d *DOTDrawer) Draw() error {
	wrt := d.writer
	if wrt == nil {
		file, err := os.Create(d.fileName)
		if err != nil {
			return errors.Wrapf(err, "unable to create file %s", d.fileName)
		}
		defer file.Close()

		wrt = file
	}

	err := dot(d.graph, d.store, wrt)
	if err != nil {
		return errors.Wrapf(err, "unable to create dot file %s", d.fileName)
	}

	return nil
}

// SetTotalTime sets the total time for the node.
func (d *DOTDrawer) SetTotalTime(name string, startTime time.Time) error {
	err := d.store.UpdateVertex(name, graph.VertexAttribute("xlabel", round(time.Since(startTime)).String()))
	if err != nil {
		return errors.Wrapf(err, "unable to set total time of %s", name)
	}

	return nil
}

const maxRGB = 240

// AddMeasure adds measure to drawer. Links into a job carry the average time of its before-each
// hooks, links out of it the average time of its after-each hooks, graded from blue to red.
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	allHookElapsed := make(map[time.Duration]string)
	sortedAllHookElapsed := []time.Duration{}

	for _, mt := range msr.AllMetrics() {
		for _, info := range mt.AVGHookDuration() {
			if info.Elapsed == 0 {
				continue
			}

			if _, ok := allHookElapsed[info.Elapsed]; ok {
				continue
			}

			allHookElapsed[info.Elapsed] = ""

			sortedAllHookElapsed = append(sortedAllHookElapsed, info.Elapsed)
		}
	}

	if len(sortedAllHookElapsed) > 0 {
		sort.Slice(sortedAllHookElapsed, func(i, j int) bool {
			return sortedAllHookElapsed[i] > sortedAllHookElapsed[j]
		})

		maxValue := sortedAllHookElapsed[0]
		minValue := sortedAllHookElapsed[len(sortedAllHookElapsed)-1]

		for curr := range allHookElapsed {
			fraction := 1.0
			if maxValue > minValue {
				fraction = float64(curr-minValue) / float64(maxValue-minValue)
			}

			red := maxRGB * fraction
			blue := maxRGB - red

			colour, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
			if err != nil {
				return errors.Wrap(err, "unable to get colour")
			}

			allHookElapsed[curr] = colour.ToHEX().String()
		}
	}

	err := d.updateMetrics(msr, allHookElapsed)
	if err != nil {
		return errors.Wrap(err, "unable to update metrics")
	}

	return nil
}

func (d *DOTDrawer) updateMetrics(msr measure.Measure, allHookElapsed map[time.Duration]string) error {
	predecessors, err := d.graph.PredecessorMap()
	if err != nil {
		return errors.Wrap(err, "unable to get predecessor map")
	}

	for name, mt := range msr.AllMetrics() {
		if _, ok := predecessors[name]; !ok {
			continue
		}

		labels := []string{}
		if avg := mt.AVGDuration(); avg != 0 {
			labels = append(labels, avg.String())
		}

		if total := mt.GetTotalDuration(); total > 0 {
			labels = append(labels, "total: "+round(total).String())
		}

		if failures := mt.Failures(); failures > 0 {
			labels = append(labels, fmt.Sprintf("failed: %d", failures))
		}

		if len(labels) > 0 {
			err := d.store.UpdateVertex(name, graph.VertexAttribute("xlabel", strings.Join(labels, ", ")))
			if err != nil {
				return errors.Wrap(err, "unable to update vertex")
			}
		}

		hooks := mt.AVGHookDuration()

		if info, ok := hooks[model.BeforeEachKind]; ok && info.Elapsed > 0 {
			for parent := range predecessors[name] {
				err := d.labelEdge(parent, name, info.Elapsed, allHookElapsed)
				if err != nil {
					return err
				}
			}
		}

		if info, ok := hooks[model.AfterEachKind]; ok && info.Elapsed > 0 {
			for _, child := range d.store.Targets(name) {
				err := d.labelEdge(name, child, info.Elapsed, allHookElapsed)
				if err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (d *DOTDrawer) labelEdge(source, target string, elapsed time.Duration, allHookElapsed map[time.Duration]string) error {
	err := d.graph.UpdateEdge(source, target,
		graph.EdgeAttribute("label", elapsed.String()),
		graph.EdgeAttribute("fontcolor", "blue"),
		graph.EdgeAttribute("color", allHookElapsed[elapsed]),
	)
	if err != nil {
		return errors.Wrapf(err, "unable to update edge from %s to %s", source, target)
	}

	return nil
}

func round(d time.Duration) time.Duration {
	if d > time.Millisecond {
		return d.Round(time.Microsecond)
	}

	return d
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
	{{range $k, $v := .Attributes}}
		{{$k}}="{{$v}}";
	{{end}}
	{{range $s := .Statements}}
		"{{esc .Source}}" {{if .Target}}{{$.EdgeOperator}} "{{esc .Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}} {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.SourceWeight}} ]{{end}};
	{{end}}
	}
	`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           interface{}
	Target           interface{}
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

func dot[K comparable, T any](g graph.Graph[K, T], st store.CustomStore[K, T], wrt io.Writer, options ...func(*description)) error {
	desc, err := generateDOT(g, st, options...)
	if err != nil {
		return fmt.Errorf("failed to generate DOT description: %w", err)
	}

	return renderDOT(wrt, desc)
}

// GraphAttribute is a functional option for the [dot] function.
func GraphAttribute(key, value string) func(*description) {
	return func(d *description) {
		d.Attributes[key] = value
	}
}

// generateDOT walks the vertices and edges in insertion order, so that the output is stable.
func generateDOT[K comparable, T any](gra graph.Graph[K, T], st store.CustomStore[K, T], options ...func(*description)) (description, error) {
	desc := description{
		GraphType:    "graph",
		Attributes:   make(map[string]string),
		EdgeOperator: "--",
		Statements:   make([]statement, 0),
	}

	for _, option := range options {
		option(&desc)
	}

	if gra.Traits().IsDirected {
		desc.GraphType = "digraph"
		desc.EdgeOperator = "->"
	}

	vertices, err := st.ListVertices()
	if err != nil {
		return desc, errors.Wrap(err, "unable to list vertices")
	}

	for _, vertex := range vertices {
		_, sourceProperties, err := gra.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		htmlAttributes := make(map[string]string)
		sourceAttributes := make(map[string]string, len(sourceProperties.Attributes))

		for k, v := range sourceProperties.Attributes {
			if k == "xlabel" {
				htmlAttributes["label"] = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, htmlEscape(fmt.Sprint(vertex)), htmlEscape(v))

				continue
			}

			sourceAttributes[k] = v
		}

		stmt := statement{
			Source:           vertex,
			SourceWeight:     sourceProperties.Weight,
			SourceAttributes: sourceAttributes,
			HTMLAttributes:   htmlAttributes,
		}
		desc.Statements = append(desc.Statements, stmt)

		for _, adjacency := range st.Targets(vertex) {
			edge, err := gra.Edge(vertex, adjacency)
			if err != nil {
				return desc, errors.Wrap(err, "unable to get edge")
			}

			stmt := statement{
				Source:         vertex,
				Target:         adjacency,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			}
			desc.Statements = append(desc.Statements, stmt)
		}
	}

	return desc, nil
}

func htmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Funcs(template.FuncMap{
		"esc": func(v interface{}) string {
			return strings.ReplaceAll(fmt.Sprint(v), `"`, `\"`)
		},
	}).Parse(dotTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
