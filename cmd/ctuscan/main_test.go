package main

import "testing"

func TestAugmentKeepGoing(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{[]string{"make", "-j8"}, []string{"make", "-j8", "-k", "-i"}},
		{[]string{"/usr/bin/gmake"}, []string{"/usr/bin/gmake", "-k", "-i"}},
		{[]string{"ninja"}, []string{"ninja"}},
	}
	for _, c := range cases {
		got := augmentKeepGoing(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("augmentKeepGoing(%v) = %v, want %v", c.in, got, c.want)
		}
		for i := range c.want {
			if got[i] != c.want[i] {
				t.Errorf("augmentKeepGoing(%v)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}
