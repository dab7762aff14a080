/*
 *	Copyright 2026 The JAX-Go Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// jaxpr_show traces the demo functions, prints their jaxprs, the linear
// jaxpr produced by linearization at a chosen point and the gradient
// recovered by transposition.
//
// Usage:
//
//	jaxpr_show [-x <point>] [-tangent <dt>] [-out <file>]
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/mgoldfarb-nvidia/jax/jaxpr"
	"github.com/mgoldfarb-nvidia/jax/lax"
	"github.com/mgoldfarb-nvidia/jax/types/shapes"
	"github.com/mgoldfarb-nvidia/jax/types/tensors"
)

var (
	flagX       = flag.Float64("x", 3.0, "Point at which to linearize and take gradients.")
	flagTangent = flag.Float64("tangent", 1.0, "Tangent fed to the linear jaxpr.")
	flagOut     = flag.String("out", "", "Also write the report to this file.")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Padding(1, 2, 0, 2)
	jaxprStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).PaddingLeft(4)
	headerStyle  = lipgloss.NewStyle().Reverse(true).Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle  = lipgloss.NewStyle().Faint(false).PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).PaddingLeft(1).PaddingRight(1)
)

// f computes -(sin(x)*2) + x.
func f(x *jaxpr.Box) *jaxpr.Box {
	y := lax.Mul(lax.Sin(x), lax.Const(2.0))
	return lax.Add(lax.Neg(y), x)
}

// f2 doubles its input above 2 via a conditional.
func f2(x *jaxpr.Box) *jaxpr.Box {
	return jaxpr.Cond(lax.Greater(x, lax.Const(2.0)),
		func() *jaxpr.Box { return lax.Mul(x, lax.Const(2.0)) },
		func() *jaxpr.Box { return x })
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if flag.NArg() > 0 {
		klog.Errorf("Unexpected arguments %v. See 'jaxpr_show -help'.", flag.Args())
		os.Exit(1)
	}

	var report strings.Builder
	show(&report, "f(x) = -(sin(x)*2) + x", f)
	show(&report, "f2(x) = cond(x > 2, x*2, x)", f2)

	fmt.Print(report.String())
	if *flagOut != "" {
		must.M(os.WriteFile(*flagOut, []byte(report.String()), 0644))
	}
}

func show(w *strings.Builder, title string, fn func(*jaxpr.Box) *jaxpr.Box) {
	x := tensors.FromScalar(*flagX)
	jx := jaxpr.Trace1(fn, shapes.Scalar[float64]())
	must.M(jx.Check())
	primals, lin := jaxpr.Linearize(jx, x)
	derivative := jaxpr.Eval(nil, lin.Jaxpr, tensors.FromScalar(*flagTangent))
	gradient := jaxpr.Grad(fn, *flagX)

	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, jaxprStyle.Render("jaxpr:  "+jx.String()))
	fmt.Fprintln(w, jaxprStyle.Render("linear: "+lin.String()))

	table := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return headerStyle
			case row%2 == 0:
				return evenRowStyle
			default:
				return oddRowStyle
			}
		}).
		Headers("Quantity", "Value")
	table.Row("equations", humanize.Comma(int64(len(jx.Eqs))))
	table.Row("residual equations", humanize.Comma(int64(len(lin.Eqs))))
	table.Row("closed-over constants", humanize.Comma(int64(len(lin.ConstVars))))
	table.Row(fmt.Sprintf("f(%g)", *flagX), primals[0].String())
	table.Row(fmt.Sprintf("df(%g) * %g", *flagX, *flagTangent), derivative[0].String())
	table.Row(fmt.Sprintf("grad f(%g)", *flagX), gradient.String())
	fmt.Fprintln(w, table.Render())
}
