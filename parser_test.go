package agentgate

import (
	"reflect"
	"testing"
)

func TestParseCommandEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		if got := ParseCommand(raw); got != nil {
			t.Errorf("ParseCommand(%q) = %v, want nil", raw, got)
		}
	}
}

func TestParseCommandSimple(t *testing.T) {
	cmds := ParseCommand("ls -la /tmp")
	if len(cmds) != 1 {
		t.Fatalf("got %d segments, want 1", len(cmds))
	}
	if cmds[0].Binary != "ls" {
		t.Errorf("Binary = %q, want %q", cmds[0].Binary, "ls")
	}
	if !reflect.DeepEqual(cmds[0].Args, []string{"-la", "/tmp"}) {
		t.Errorf("Args = %v", cmds[0].Args)
	}
	if cmds[0].HasRedirects || cmds[0].HasSudo {
		t.Errorf("unexpected flags: redirects=%v sudo=%v", cmds[0].HasRedirects, cmds[0].HasSudo)
	}
}

func TestParseCommandChainSplitting(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string // binaries per segment, in order
	}{
		{"semicolon", "ls; pwd", []string{"ls", "pwd"}},
		{"and", "make && ./run", []string{"make", "./run"}},
		{"or", "test -f x || touch x", []string{"test", "touch"}},
		{"mixed", "a; b && c || d", []string{"a", "b", "c", "d"}},
		{"empty segment skipped", "ls;;pwd", []string{"ls", "pwd"}},
		{"operator in double quotes", `echo "a && b"`, []string{"echo"}},
		{"operator in single quotes", `echo 'a; b'`, []string{"echo"}},
		{"escaped semicolon", `echo a\; pwd`, []string{"echo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := ParseCommand(tt.raw)
			var got []string
			for _, c := range cmds {
				got = append(got, c.Binary)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("binaries = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseCommandPipes(t *testing.T) {
	cmds := ParseCommand("cat /var/log/syslog | grep error | wc -l")
	if len(cmds) != 1 {
		t.Fatalf("got %d segments, want 1", len(cmds))
	}
	c := cmds[0]
	if c.Binary != "cat" {
		t.Errorf("primary binary = %q, want cat", c.Binary)
	}
	if len(c.Pipes) != 2 {
		t.Fatalf("got %d pipe stages, want 2", len(c.Pipes))
	}
	if c.Pipes[0].Binary != "grep" || c.Pipes[1].Binary != "wc" {
		t.Errorf("pipe binaries = %q, %q", c.Pipes[0].Binary, c.Pipes[1].Binary)
	}
}

func TestParseCommandPipeInsideQuotes(t *testing.T) {
	cmds := ParseCommand(`grep "a|b" file.txt`)
	if len(cmds) != 1 || len(cmds[0].Pipes) != 0 {
		t.Fatalf("quoted pipe must not split: %+v", cmds)
	}
	if cmds[0].Args[0] != "a|b" {
		t.Errorf("Args[0] = %q, want a|b", cmds[0].Args[0])
	}
}

func TestParseCommandQuoteInterleaving(t *testing.T) {
	// Adjacent quoted and unquoted fragments concatenate into one token, so
	// quote tricks cannot hide a binary name.
	tests := []struct {
		raw  string
		want string
	}{
		{`r'm' -rf /`, "rm"},
		{`"r"m -rf /`, "rm"},
		{`r"m" file`, "rm"},
		{`su'do' reboot`, "sudo"},
		{`\r\m file`, "rm"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cmds := ParseCommand(tt.raw)
			if len(cmds) != 1 {
				t.Fatalf("got %d segments, want 1", len(cmds))
			}
			if cmds[0].Binary != tt.want {
				t.Errorf("Binary = %q, want %q", cmds[0].Binary, tt.want)
			}
		})
	}
}

func TestParseCommandQuoteNesting(t *testing.T) {
	cmds := ParseCommand(`echo "it's fine" 'say "hi"'`)
	if len(cmds) != 1 {
		t.Fatalf("got %d segments, want 1", len(cmds))
	}
	want := []string{"it's fine", `say "hi"`}
	if !reflect.DeepEqual(cmds[0].Args, want) {
		t.Errorf("Args = %v, want %v", cmds[0].Args, want)
	}
}

func TestParseCommandRedirects(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantRedirects bool
		wantArgs      []string
	}{
		{"output", "echo hi > out.txt", true, []string{"hi", "out.txt"}},
		{"append", "echo hi >> out.txt", true, []string{"hi", "out.txt"}},
		{"input", "sort < data.txt", true, []string{"data.txt"}},
		{"fd dup", "cmd 2>&1", true, nil},
		{"fd dup keeps real args", "cmd arg 2>&1", true, []string{"arg"}},
		{"target kept visible", "echo x > /dev/sda", true, []string{"x", "/dev/sda"}},
		{"quoted angle not redirect", `echo ">"`, false, []string{">"}},
		{"none", "echo hi", false, []string{"hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := ParseCommand(tt.raw)
			if len(cmds) != 1 {
				t.Fatalf("got %d segments, want 1", len(cmds))
			}
			if cmds[0].HasRedirects != tt.wantRedirects {
				t.Errorf("HasRedirects = %v, want %v", cmds[0].HasRedirects, tt.wantRedirects)
			}
			if !reflect.DeepEqual(cmds[0].Args, tt.wantArgs) {
				t.Errorf("Args = %v, want %v", cmds[0].Args, tt.wantArgs)
			}
		})
	}
}

func TestParseCommandRedirectInPipeStagePropagates(t *testing.T) {
	cmds := ParseCommand("cat file | tee > /tmp/out")
	if len(cmds) != 1 {
		t.Fatalf("got %d segments, want 1", len(cmds))
	}
	if !cmds[0].HasRedirects {
		t.Error("redirect in pipe stage must set HasRedirects on the primary")
	}
}

func TestParseCommandSudo(t *testing.T) {
	cmds := ParseCommand("sudo apt upgrade")
	if len(cmds) != 1 || !cmds[0].HasSudo {
		t.Fatalf("HasSudo not set: %+v", cmds)
	}
	if cmds[0].Binary != "sudo" {
		t.Errorf("Binary = %q, want sudo", cmds[0].Binary)
	}

	// sudo in a later pipe stage propagates to the primary.
	cmds = ParseCommand("echo pw | sudo tee /etc/hosts")
	if len(cmds) != 1 || !cmds[0].HasSudo {
		t.Fatalf("pipe-stage sudo must propagate: %+v", cmds)
	}
}

func TestParseCommandWhitespaceCollapsing(t *testing.T) {
	cmds := ParseCommand("  ls    -l   ")
	if len(cmds) != 1 {
		t.Fatalf("got %d segments, want 1", len(cmds))
	}
	if cmds[0].Binary != "ls" || !reflect.DeepEqual(cmds[0].Args, []string{"-l"}) {
		t.Errorf("got %q %v", cmds[0].Binary, cmds[0].Args)
	}
}

func TestHasCommandSubstitution(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"echo $(whoami)", true},
		{"echo $(echo $(id))", true},
		{"echo `id`", true},
		{"echo $(truncated", true},
		{"echo $100", false},
		{"echo $", false},
		{"echo money$", false},
		{"echo `lonely", false},
		{"plain text", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := HasCommandSubstitution(tt.text); got != tt.want {
				t.Errorf("HasCommandSubstitution(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestHasVariableExpansion(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"echo $HOME", true},
		{"echo ${HOME}", true},
		{"echo $_", true},
		{"echo $path2", true},
		{"echo $1", false},
		{"echo $?", false},
		{"echo $", false},
		{"echo ${}", false},
		{"echo ${1}", false},
		{"price is $100", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := HasVariableExpansion(tt.text); got != tt.want {
				t.Errorf("HasVariableExpansion(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
