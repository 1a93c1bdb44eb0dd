package cmdfilter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCCFilterMatches(t *testing.T) {
	cases := []struct {
		cmd  string
		want bool
	}{
		{"/usr/bin/gcc", true},
		{"/usr/bin/cc", true},
		{"clang-14", true},
		{"clang++", false},
		{"clang++-14", false},
		{"/usr/bin/g++", false},
	}
	f := CCFilter{}
	for _, tc := range cases {
		if got := f.Matches(tc.cmd); got != tc.want {
			t.Errorf("CCFilter{}.Matches(%q) = %v, want %v", tc.cmd, got, tc.want)
		}
	}
}

func TestCXXFilterMatches(t *testing.T) {
	cases := []struct {
		cmd  string
		want bool
	}{
		{"/usr/bin/g++", true},
		{"/usr/bin/c++", true},
		{"clang++-14", true},
		{"clang-14", false},
		{"gcc", false},
	}
	f := CXXFilter{}
	for _, tc := range cases {
		if got := f.Matches(tc.cmd); got != tc.want {
			t.Errorf("CXXFilter{}.Matches(%q) = %v, want %v", tc.cmd, got, tc.want)
		}
	}
}

// S1 (shared with cmdrecord): gcc -c a.c -o a.o.
func TestInspectBasicCompile(t *testing.T) {
	got := CCFilter{}.Inspect([]string{"gcc", "-c", "a.c", "-o", "a.o"})
	want := ArgInfo{Inputs: []string{"a.c"}, Outputs: []string{"a.o"}, Options: []string{"-c"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Inspect mismatch (-want +got):\n%s", diff)
	}
}

// S4: gcc -E -o foo.i foo.c -> empty ArgInfo, -E fires first.
func TestInspectNoOpOptionShortCircuits(t *testing.T) {
	got := CCFilter{}.Inspect([]string{"gcc", "-E", "-o", "foo.i", "foo.c"})
	if !got.Empty() {
		t.Errorf("Inspect = %+v, want empty ArgInfo", got)
	}
}

// S5: clang -arch ppc -c x.c -> empty ArgInfo, only arch is disallowed.
func TestInspectDisallowedArchOnly(t *testing.T) {
	got := CCFilter{}.Inspect([]string{"clang", "-arch", "ppc", "-c", "x.c"})
	if !got.Empty() {
		t.Errorf("Inspect = %+v, want empty ArgInfo", got)
	}
}

func TestInspectAllowedArchSurvives(t *testing.T) {
	got := CCFilter{}.Inspect([]string{"clang", "-arch", "x86_64", "-c", "x.c"})
	if got.Empty() {
		t.Fatal("Inspect = empty, want a populated ArgInfo")
	}
	if diff := cmp.Diff([]string{"x86_64"}, got.Archs); diff != "" {
		t.Errorf("Archs mismatch (-want +got):\n%s", diff)
	}
}

func TestInspectSynthesizesOutputWhenMissing(t *testing.T) {
	got := CCFilter{}.Inspect([]string{"gcc", "-c", "src/foo.c"})
	want := []string{"foo.o"}
	if diff := cmp.Diff(want, got.Outputs); diff != "" {
		t.Errorf("Outputs mismatch (-want +got):\n%s", diff)
	}
}

func TestInspectDefaultsToAOutWithoutDashC(t *testing.T) {
	got := CCFilter{}.Inspect([]string{"gcc", "foo.c"})
	want := []string{"a.out"}
	if diff := cmp.Diff(want, got.Outputs); diff != "" {
		t.Errorf("Outputs mismatch (-want +got):\n%s", diff)
	}
}

func TestInspectDropsWarnOptionsExceptWno(t *testing.T) {
	got := CCFilter{}.Inspect([]string{"gcc", "-c", "a.c", "-Wall", "-Wno-unused", "-o", "a.o"})
	want := []string{"-c", "-Wno-unused"}
	if diff := cmp.Diff(want, got.Options); diff != "" {
		t.Errorf("Options mismatch (-want +got):\n%s", diff)
	}
}

func TestInspectNoInputsIsEmpty(t *testing.T) {
	got := CCFilter{}.Inspect([]string{"gcc", "-c", "-O2"})
	if !got.Empty() {
		t.Errorf("Inspect = %+v, want empty ArgInfo", got)
	}
}

func TestARFilter(t *testing.T) {
	f := ARFilter{}
	if !f.Matches("/usr/bin/ar") {
		t.Fatal("ARFilter should match ar")
	}
	got := f.Inspect([]string{"ar", "rcs", "lib.a", "a.o", "b.o"})
	want := ArgInfo{Outputs: []string{"lib.a"}, Inputs: []string{"a.o", "b.o"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Inspect mismatch (-want +got):\n%s", diff)
	}
}

func TestARFilterTooFewFilenamesIsEmpty(t *testing.T) {
	got := ARFilter{}.Inspect([]string{"ar", "rcs", "lib.a"})
	if !got.Empty() {
		t.Errorf("Inspect = %+v, want empty ArgInfo", got)
	}
}

func TestDefaultRegistryOrdering(t *testing.T) {
	r := DefaultRegistry()
	if f := r.Match("gcc"); f == nil {
		t.Fatal("expected gcc to match a filter")
	}
	if f := r.Match("clang++"); f == nil {
		t.Fatal("expected clang++ to match the CXX filter")
	} else if _, ok := f.(CXXFilter); !ok {
		t.Errorf("clang++ matched %T, want CXXFilter", f)
	}
	if f := r.Match("/usr/bin/ld"); f != nil {
		t.Errorf("expected ld to match no filter, got %T", f)
	}
}
