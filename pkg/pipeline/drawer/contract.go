package drawer

import (
	"time"

	"github.com/dominikbraun/graph"

	"github.com/askiada/go-stagerun/pkg/pipeline/measure"
)

// Drawer is an interface that defines the methods for drawing a pipeline plan.
type Drawer interface {
	// AddStep adds a node to the pipeline drawer. Adding an existing node is a no-op.
	AddStep(name string, options ...func(*graph.VertexProperties)) error
	// AddLink adds a link between parent and child nodes. Adding an existing link is a no-op.
	AddLink(parentName, childName string) error
	// Draw writes the pipeline graph.
	Draw() error
	// SetTotalTime sets the time elapsed since startTime on the node.
	SetTotalTime(name string, startTime time.Time) error
	// AddMeasure annotates nodes and links with the durations of a measure.
	AddMeasure(measure measure.Measure) error
}
