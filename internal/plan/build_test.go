package plan_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vk/roofline/internal/plan"
	"github.com/vk/roofline/internal/roi"
)

var regions = map[string]roi.Spec{
	"whole program":     {Kind: roi.WholeProgram},
	"both markers":      {Kind: roi.MarkerDelimited, Start: "main", End: "cleanup", Label: true},
	"start marker":      {Kind: roi.MarkerDelimited, Start: "main"},
	"traced function":   {Kind: roi.TracedFunction, Function: "dgemm"},
	"per call function": {Kind: roi.TracedFunction, Function: "dgemm", PerCall: true},
}

var scopes = []plan.ByteScope{plan.AllBytes, plan.ReadBytesOnly, plan.WriteBytesOnly}

func purposes(p plan.Plan) []plan.Purpose {
	var out []plan.Purpose
	for _, pass := range p.Passes() {
		out = append(out, pass.Purpose)
	}
	return out
}

var _ = Describe("Build", func() {
	Describe("Full mode", func() {
		It("should plan a memory and FP pass followed by a timing pass", func() {
			for name, region := range regions {
				for _, scope := range scopes {
					p := plan.Build(plan.Full, region, scope)
					Expect(purposes(p)).To(Equal([]plan.Purpose{plan.MemoryAndFP, plan.Timing}), "region %s scope %s", name, scope)
				}
			}
		})

		It("should make the timing options the first pass options plus one timing flag", func() {
			for name, region := range regions {
				for _, scope := range scopes {
					passes := plan.Build(plan.Full, region, scope).Passes()
					first, second := passes[0].Options, passes[1].Options

					Expect(second).To(HaveLen(len(first)+1), "region %s scope %s", name, scope)
					Expect(second[:len(first)]).To(Equal(first))
					Expect(second[len(first)]).To(Equal(plan.FlagTimeRun))
					Expect(first).NotTo(ContainElement(plan.FlagTimeRun))
				}
			}
		})

		It("should always request CSV dumps", func() {
			for _, pass := range plan.Build(plan.Full, regions["whole program"], plan.AllBytes).Passes() {
				Expect(pass.Options).To(ContainElement(plan.FlagDumpCSV))
			}
		})
	})

	Describe("Single pass modes", func() {
		It("should plan exactly one flops pass for flops only", func() {
			p := plan.Build(plan.FlopsOnly, regions["both markers"], plan.ReadBytesOnly)
			Expect(p.Len()).To(Equal(1))
			Expect(purposes(p)).To(Equal([]plan.Purpose{plan.Flops}))
			Expect(p.Passes()[0].Options).To(Equal([]string{
				"--roi_start", "main", "--roi_end", "cleanup", "--label_roi",
				"--read_bytes_only", "--dump_csv",
			}))
		})

		It("should plan exactly one timing pass for time only", func() {
			p := plan.Build(plan.TimeOnly, regions["traced function"], plan.AllBytes)
			Expect(p.Len()).To(Equal(1))
			Expect(purposes(p)).To(Equal([]plan.Purpose{plan.Timing}))
			Expect(p.Passes()[0].Options).To(Equal([]string{"--trace_f", "dgemm", "--dump_csv", "--time_run"}))
		})

		It("should not time the flops pass", func() {
			p := plan.Build(plan.FlopsOnly, regions["whole program"], plan.AllBytes)
			Expect(p.Passes()[0].Options).NotTo(ContainElement(plan.FlagTimeRun))
		})
	})

	Describe("Region flags", func() {
		It("should emit no region flags for the whole program", func() {
			for _, pass := range plan.Build(plan.Full, regions["whole program"], plan.WriteBytesOnly).Passes() {
				Expect(pass.Options).NotTo(ContainElement(HavePrefix("--roi")))
				Expect(pass.Options).NotTo(ContainElement(roi.FlagTraceFunction))
				Expect(pass.Options).NotTo(ContainElement(roi.FlagLabel))
			}
		})
	})

	Describe("Immutability", func() {
		It("should not be affected by callers modifying returned passes", func() {
			p := plan.Build(plan.Full, regions["start marker"], plan.AllBytes)
			passes := p.Passes()
			passes[0].Options[0] = "--mutated"
			passes[0].Purpose = plan.Timing

			Expect(p.Passes()[0].Options[0]).To(Equal("--roi_start"))
			Expect(p.Passes()[0].Purpose).To(Equal(plan.MemoryAndFP))
		})
	})
})
