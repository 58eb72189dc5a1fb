package atlas

import (
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/uvatlas/internal/geometry"
	"github.com/Faultbox/uvatlas/internal/parallel"
	"github.com/Faultbox/uvatlas/internal/param"
	"github.com/Faultbox/uvatlas/internal/segment"
)

// chartJob is one chart waiting to be parametrized.
type chartJob struct {
	mesh  int
	faces []int
	round int
}

// jobOutcome is what one round did with a job: either a finished chart or the
// pieces it was re-split into.
type jobOutcome struct {
	chart  *param.Chart
	pieces [][]int
}

// driver runs segmentation and parametrization as a bounded work list: every
// round parametrizes all pending jobs in parallel and re-splits the distorted ones
// into the next round.
type driver struct {
	meshes []*geometry.Mesh
	opts   ChartOptions
	pool   *parallel.WorkerPool
	log    *zap.Logger

	segmenters    []*segment.Segmenter
	parametrizers []*param.Parametrizer
	inputUVs      []bool
}

func newDriver(meshes []*geometry.Mesh, opts ChartOptions, pool *parallel.WorkerPool, log *zap.Logger) *driver {
	d := &driver{
		meshes:        meshes,
		opts:          opts,
		pool:          pool,
		log:           log,
		segmenters:    make([]*segment.Segmenter, len(meshes)),
		parametrizers: make([]*param.Parametrizer, len(meshes)),
		inputUVs:      make([]bool, len(meshes)),
	}
	for i, m := range meshes {
		d.segmenters[i] = segment.New(m, opts.segment(), log)
		d.parametrizers[i] = param.New(m, opts.param(), log)
		d.inputUVs[i] = opts.UseInputMeshUVs && m.HasUVs()
		if opts.UseInputMeshUVs && !m.HasUVs() {
			log.Debug("mesh has no input uvs, segmenting instead", zap.Int("mesh", i))
		}
	}
	return d
}

// run returns the accepted charts of every mesh, ordered by lowest face.
func (d *driver) run() [][]*param.Chart {
	initial := make([][][]int, len(d.meshes))
	d.pool.ForEach(len(d.meshes), func(i int) {
		if d.inputUVs[i] {
			initial[i] = segment.UVIslands(d.meshes[i])
			return
		}
		initial[i] = d.segmenters[i].Segment()
	})

	var jobs []chartJob
	for mi, charts := range initial {
		for _, faces := range charts {
			jobs = append(jobs, chartJob{mesh: mi, faces: faces})
		}
	}

	accepted := make([][]*param.Chart, len(d.meshes))
	for round := 0; len(jobs) > 0; round++ {
		outcomes := make([]jobOutcome, len(jobs))
		d.pool.ForEach(len(jobs), func(i int) {
			outcomes[i] = d.process(jobs[i])
		})

		var next []chartJob
		resplit := 0
		for i, out := range outcomes {
			job := jobs[i]
			if out.chart != nil {
				accepted[job.mesh] = append(accepted[job.mesh], out.chart)
				continue
			}
			resplit++
			for _, piece := range out.pieces {
				next = append(next, chartJob{mesh: job.mesh, faces: piece, round: job.round + 1})
			}
		}
		d.log.Debug("chart round",
			zap.Int("round", round),
			zap.Int("jobs", len(jobs)),
			zap.Int("resplit", resplit))
		jobs = next
	}

	for _, charts := range accepted {
		sort.Slice(charts, func(i, j int) bool {
			return charts[i].Faces[0] < charts[j].Faces[0]
		})
	}
	return accepted
}

// process parametrizes one job and decides whether to keep it.
func (d *driver) process(job chartJob) jobOutcome {
	p := d.parametrizers[job.mesh]
	if d.inputUVs[job.mesh] {
		return jobOutcome{chart: p.FromInputUVs(job.faces)}
	}

	chart := p.Parametrize(job.faces)
	distorted := chart.Distortion > d.opts.MaxDistortion || chart.Flipped > 0
	if !distorted || job.round >= d.opts.MaxIterations || len(job.faces) <= 1 {
		return jobOutcome{chart: chart}
	}

	pieces := d.segmenters[job.mesh].Resplit(job.faces, job.round+1)
	if len(pieces) <= 1 {
		return jobOutcome{chart: chart}
	}
	return jobOutcome{pieces: pieces}
}
