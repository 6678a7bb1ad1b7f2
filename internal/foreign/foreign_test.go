package foreign_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"

	"github.com/funvibe/sasquach/internal/classfile"
	"github.com/funvibe/sasquach/internal/foreign"
)

func jdk(t *testing.T) *foreign.Index {
	t.Helper()
	ix, err := foreign.LoadJDK()
	be.Err(t, err, nil)
	return ix
}

func descriptors(ms []*foreign.Member) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Owner + " " + m.Descriptor
	}
	return out
}

func TestJDK_Overloads(t *testing.T) {
	ix := jdk(t)
	ms := ix.Members("java/lang/Math", "max", foreign.KindMethod)
	be.Equal(t, len(ms), 4)
	for _, m := range ms {
		be.True(t, m.Static)
		be.Equal(t, m.Owner, "java/lang/Math")
	}
	be.Equal(t, ms[1].Params, []string{"J", "J"})
	be.Equal(t, ms[1].Result, "J")
}

func TestJDK_InheritedMembers(t *testing.T) {
	ix := jdk(t)

	got := descriptors(ix.Members("java/util/List", "remove", foreign.KindMethod))
	be.Equal(t, got, []string{
		"java/util/List (I)Ljava/lang/Object;",
		"java/util/Collection (Ljava/lang/Object;)Z",
	})

	// Interfaces see Object's methods.
	got = descriptors(ix.Members("java/util/List", "hashCode", foreign.KindMethod))
	be.Equal(t, got, []string{"java/lang/Object ()I"})

	// ArrayList redeclares both, so the inherited ones are hidden.
	ms := ix.Members("java/util/ArrayList", "remove", foreign.KindMethod)
	be.Equal(t, len(ms), 2)
	for _, m := range ms {
		be.Equal(t, m.Owner, "java/util/ArrayList")
		be.True(t, !m.OwnerInterface)
	}

	size := ix.Members("java/util/Collection", "size", foreign.KindMethod)
	be.Equal(t, len(size), 1)
	be.True(t, size[0].OwnerInterface)
}

func TestJDK_ConstructorsAreNotInherited(t *testing.T) {
	ix := jdk(t)
	ctors := ix.Members("java/lang/IllegalStateException", "<init>", foreign.KindConstructor)
	be.Equal(t, len(ctors), 2)
	for _, c := range ctors {
		be.Equal(t, c.Owner, "java/lang/IllegalStateException")
		be.Equal(t, c.Result, "V")
	}
	be.Equal(t, len(ix.Members("java/util/List", "<init>", foreign.KindConstructor)), 0)
	be.Equal(t, ctors[0].String(), "java/lang/IllegalStateException#new()V")
}

func TestJDK_Fields(t *testing.T) {
	ix := jdk(t)
	out := ix.Members("java/lang/System", "out", foreign.KindField)
	be.Equal(t, len(out), 1)
	be.Equal(t, out[0].Result, "Ljava/io/PrintStream;")
	be.True(t, out[0].Static)
	be.Equal(t, len(ix.Members("java/lang/System", "out", foreign.KindMethod)), 0)
}

func TestIsSubclass(t *testing.T) {
	ix := jdk(t)
	tests := []struct {
		a, b string
		want bool
	}{
		{"java/util/ArrayList", "java/util/List", true},
		{"java/util/ArrayList", "java/util/Collection", true},
		{"java/util/ArrayList", "java/lang/Iterable", true},
		{"java/lang/Integer", "java/lang/Number", true},
		{"java/lang/Integer", "java/lang/Comparable", true},
		{"java/lang/String", "java/lang/CharSequence", true},
		{"java/util/List", "java/lang/Object", true},
		{"java/util/List", "java/util/ArrayList", false},
		{"java/lang/Long", "java/lang/Integer", false},
		{"java/lang/String", "java/lang/String", true},
	}
	for _, tt := range tests {
		be.Equal(t, foreign.IsSubclass(ix, tt.a, tt.b), tt.want)
	}
}

func TestParseYAML(t *testing.T) {
	src := `
classes:
  - name: com/acme/Counter
    constructors: ["(I)V"]
    methods:
      - {name: next, desc: "()I"}
      - {name: of, desc: "(I)Lcom/acme/Counter;", static: true}
    fields:
      - {name: LIMIT, desc: J, static: true}
`
	ix, err := foreign.ParseYAML([]byte(src), "acme.yaml")
	be.Err(t, err, nil)
	c, ok := ix.ResolveClass("com/acme/Counter")
	be.True(t, ok)
	be.Equal(t, c.Super, foreign.ObjectClass)
	be.Equal(t, len(c.Members), 4)

	// Object is not in this index, so nothing is inherited.
	be.Equal(t, len(ix.Members("com/acme/Counter", "toString", foreign.KindMethod)), 0)
}

func TestParseYAML_Errors(t *testing.T) {
	tests := []struct {
		name, src, want string
	}{
		{"unknown key", "classes:\n  - name: a/B\n    method: []\n", "field method not found"},
		{"bad descriptor", "classes:\n  - name: a/B\n    methods:\n      - {name: f, desc: \"(Q)V\"}\n", "invalid descriptor character"},
		{"bad field", "classes:\n  - name: a/B\n    fields:\n      - {name: f, desc: \"Ljava/lang/String\"}\n", "unterminated class descriptor"},
		{"dotted name", "classes:\n  - name: java.util.List\n", "internal names"},
		{"missing name", "classes:\n  - super: a/B\n", "name is required"},
		{"duplicate", "classes:\n  - name: a/B\n  - name: a/B\n", "duplicate class a/B"},
		{"ctor result", "classes:\n  - name: a/B\n    constructors: [\"()I\"]\n", "must return V"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := foreign.ParseYAML([]byte(tt.src), "x.yaml")
			be.Err(t, err, tt.want)
		})
	}
}

func TestParseTOML(t *testing.T) {
	src := `
[[classes]]
name = "com/acme/Greeter"
interfaces = ["java/lang/CharSequence"]
constructors = ["()V"]

[[classes.methods]]
name = "greet"
desc = "(Ljava/lang/String;)Ljava/lang/String;"
`
	ix, err := foreign.ParseTOML([]byte(src), "acme.toml")
	be.Err(t, err, nil)
	ms := ix.Members("com/acme/Greeter", "greet", foreign.KindMethod)
	be.Equal(t, len(ms), 1)
	be.Equal(t, ms[0].Params, []string{"Ljava/lang/String;"})

	_, err = foreign.ParseTOML([]byte("[[classes]]\nname = \"a/B\"\nbogus = 1\n"), "x.toml")
	be.Err(t, err, "unknown key")
}

func TestLayered(t *testing.T) {
	base := jdk(t)
	user, err := foreign.ParseYAML([]byte(`
classes:
  - name: java/lang/Math
    methods:
      - {name: tau, desc: "()D", static: true}
  - name: com/acme/Box
    super: java/util/ArrayList
`), "user.yaml")
	be.Err(t, err, nil)
	ns := foreign.Layered{user, base}

	// The user index shadows the stub's Math entirely.
	be.Equal(t, len(ns.Members("java/lang/Math", "max", foreign.KindMethod)), 0)
	be.Equal(t, len(ns.Members("java/lang/Math", "tau", foreign.KindMethod)), 1)

	// Inheritance crosses layers.
	be.Equal(t, len(ns.Members("com/acme/Box", "get", foreign.KindMethod)), 1)
	be.True(t, foreign.IsSubclass(ns, "com/acme/Box", "java/util/List"))
	_, ok := ns.ResolveClass("com/acme/Missing")
	be.True(t, !ok)
}

func counterClass(t *testing.T) []byte {
	t.Helper()
	c := classfile.NewClass(classfile.AccPublic|classfile.AccSuper, "com/acme/Counter", "java/lang/Object")
	c.AddField(classfile.AccPublic|classfile.AccStatic, "LIMIT", "I")
	c.AddField(classfile.AccPrivate, "n", "I")

	init := c.AddMethod(classfile.AccPublic, "<init>", "()V")
	init.Load(0)
	init.Invoke(classfile.INVOKESPECIAL, "java/lang/Object", "<init>", "()V", false)
	init.Return()

	next := c.AddMethod(classfile.AccPublic, "next", "()I")
	next.PushInt(1)
	next.ReturnValue()

	hidden := c.AddMethod(classfile.AccPrivate|classfile.AccStatic, "hidden", "()V")
	hidden.Return()

	data, err := c.Bytes()
	be.Err(t, err, nil)
	return data
}

func TestReadClass(t *testing.T) {
	c, err := foreign.ReadClass(counterClass(t))
	be.Err(t, err, nil)
	be.Equal(t, c.Name, "com/acme/Counter")
	be.Equal(t, c.Super, "java/lang/Object")

	var names []string
	for _, m := range c.Members {
		names = append(names, m.Kind.String()+" "+m.Name)
	}
	be.Equal(t, names, []string{"field LIMIT", "constructor <init>", "method next"})
}

func TestLoad_JarAndDir(t *testing.T) {
	dir := t.TempDir()
	data := counterClass(t)

	jarPath := filepath.Join(dir, "acme.jar")
	f, err := os.Create(jarPath)
	be.Err(t, err, nil)
	zw := zip.NewWriter(f)
	for _, name := range []string{"com/acme/Counter.class", "META-INF/versions/9/com/acme/Counter.class"} {
		w, err := zw.Create(name)
		be.Err(t, err, nil)
		_, err = w.Write(data)
		be.Err(t, err, nil)
	}
	w, err := zw.Create("META-INF/MANIFEST.MF")
	be.Err(t, err, nil)
	_, err = w.Write([]byte("Manifest-Version: 1.0\n"))
	be.Err(t, err, nil)
	be.Err(t, zw.Close(), nil)
	be.Err(t, f.Close(), nil)

	ix, err := foreign.Load(jarPath)
	be.Err(t, err, nil)
	be.Equal(t, ix.ClassNames(), []string{"com/acme/Counter"})

	classDir := filepath.Join(dir, "classes", "com", "acme")
	be.Err(t, os.MkdirAll(classDir, 0o755), nil)
	be.Err(t, os.WriteFile(filepath.Join(classDir, "Counter.class"), data, 0o644), nil)
	ix, err = foreign.Load(filepath.Join(dir, "classes"))
	be.Err(t, err, nil)
	be.Equal(t, ix.Len(), 1)

	ns, err := foreign.LoadAll(jdk(t), []string{jarPath})
	be.Err(t, err, nil)
	be.Equal(t, len(ns.Members("com/acme/Counter", "hashCode", foreign.KindMethod)), 1)

	_, err = foreign.Load(filepath.Join(dir, "missing.yaml"))
	be.Err(t, err)
	be.Err(t, os.WriteFile(filepath.Join(dir, "x.txt"), nil, 0o644), nil)
	_, err = foreign.Load(filepath.Join(dir, "x.txt"))
	be.Err(t, err, "unsupported file type")
}
