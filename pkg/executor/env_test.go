package executor

import (
	"strings"
	"testing"
)

func TestBuildCommandEnv(t *testing.T) {
	env := BuildCommandEnv(
		map[string]string{"FOO": "one"},
		map[string]string{"FOO": "two", "BAR": "ok", "": "ignored"},
	)

	foundFoo := false
	foundBar := false
	foundEmpty := false
	for _, kv := range env {
		if kv == "FOO=two" {
			foundFoo = true
		}
		if kv == "BAR=ok" {
			foundBar = true
		}
		if strings.HasPrefix(kv, "=") {
			foundEmpty = true
		}
	}

	if !foundFoo {
		t.Fatal("expected FOO override to be applied")
	}
	if !foundBar {
		t.Fatal("expected BAR to be present")
	}
	if foundEmpty {
		t.Fatal("expected empty key to be ignored")
	}
}

func TestBuildCommandEnv_StripsAnthropicVars(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "secret")
	t.Setenv("DROIDEXEC_TEST_KEEP", "yes")

	env := BuildCommandEnv()
	for _, kv := range env {
		if strings.HasPrefix(kv, "ANTHROPIC_") {
			t.Fatalf("expected ANTHROPIC_ variables to be removed, found %q", kv)
		}
	}
	if !contains(env, "DROIDEXEC_TEST_KEEP=yes") {
		t.Fatal("expected host variable to be inherited")
	}
}

func TestBuildCommandEnv_EmptyValueRemoves(t *testing.T) {
	t.Setenv("DROIDEXEC_TEST_DROP", "present")

	env := BuildCommandEnv(map[string]string{"DROIDEXEC_TEST_DROP": ""})
	for _, kv := range env {
		if strings.HasPrefix(kv, "DROIDEXEC_TEST_DROP=") {
			t.Fatalf("expected variable to be removed, found %q", kv)
		}
	}
}

func TestBuildCommandEnv_Sorted(t *testing.T) {
	env := BuildCommandEnv(map[string]string{"ZZZ_LAST": "1", "AAA_FIRST": "1"})
	for i := 1; i < len(env); i++ {
		prev, _, _ := strings.Cut(env[i-1], "=")
		cur, _, _ := strings.Cut(env[i], "=")
		if prev > cur {
			t.Fatalf("expected env sorted by key, %q came before %q", prev, cur)
		}
	}
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
