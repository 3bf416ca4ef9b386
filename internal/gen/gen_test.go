package gen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WhisperCapital/go-yd/internal/common"
	"github.com/WhisperCapital/go-yd/internal/decl"
	"github.com/WhisperCapital/go-yd/internal/diag"
)

const fixture = "../../testdata/ydapi.yaml"

func testConfig(mutate ...func(*common.Config)) *common.Config {
	cfg := common.DefaultConfig()
	for _, m := range mutate {
		m(cfg)
	}
	return cfg
}

func loadFixture(t *testing.T) *decl.Header {
	t.Helper()
	h, err := decl.Load(fixture)
	require.NoError(t, err)
	return h
}

func generateFixture(t *testing.T, mutate ...func(*common.Config)) map[string]string {
	t.Helper()
	files, err := NewGenerator(testConfig(mutate...), loadFixture(t)).Generate()
	require.NoError(t, err)

	out := map[string]string{}
	for name, data := range files {
		out[name] = string(data)
	}
	return out
}

func generateYAML(t *testing.T, src string, mutate ...func(*common.Config)) (map[string]string, error) {
	t.Helper()
	h, err := decl.Parse([]byte(src))
	require.NoError(t, err)

	files, err := NewGenerator(testConfig(mutate...), h).Generate()
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	for name, data := range files {
		out[name] = string(data)
	}
	return out, nil
}

func analyzeFixture(t *testing.T, mutate ...func(*common.Config)) *Model {
	t.Helper()
	m, err := Analyze(loadFixture(t), testConfig(mutate...))
	require.NoError(t, err)
	return m
}

// assertOrder checks that each needle occurs in text after the previous one.
func assertOrder(t *testing.T, text string, needles ...string) {
	t.Helper()
	offset := 0
	for _, n := range needles {
		i := strings.Index(text[offset:], n)
		require.GreaterOrEqual(t, i, 0, "%q is missing or out of order", n)
		offset += i + len(n)
	}
}

// funcText returns the text of the Go function named fn.
func funcText(t *testing.T, text, fn string) string {
	t.Helper()
	start := strings.Index(text, "func "+fn+"(")
	require.GreaterOrEqual(t, start, 0, "missing func %s", fn)
	end := strings.Index(text[start:], "\n}\n")
	require.Greater(t, end, 0)
	return text[start : start+end+2]
}

func TestGenerate_Files(t *testing.T) {
	files := generateFixture(t)

	assert.ElementsMatch(t,
		[]string{FileCHeader, FileBinding, FileAPI, FileSPI, FileTable, FileShim},
		common.SortedKeys(files))
	for name, text := range files {
		assert.True(t, strings.HasPrefix(text, "// "+common.GeneratedNotice), "%s lacks the generated notice", name)
	}
	assert.Contains(t, files[FileBinding], "package yd\n")
	assert.Contains(t, files[FileSPI], `#include "yd_bindings.h"`)
}

func TestGenerate_Deterministic(t *testing.T) {
	first := generateFixture(t)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, generateFixture(t), "regeneration must be byte-identical")
	}
}

func TestVTableFollowsDeclarationOrder(t *testing.T) {
	header := generateFixture(t)[FileCHeader]

	assertOrder(t, header,
		"struct YDListenerVTable {",
		"YDListener_destructor_fn destructor;",
		"YDListener_destructor_fn deleting_destructor;",
		"YDListener_notify_ready_for_login_fn notify_ready_for_login;",
		"YDListener_notify_login_fn notify_login;",
		"YDListener_notify_finish_init_fn notify_finish_init;",
		"YDListener_notify_caught_up_fn notify_caught_up;",
		"YDListener_notify_market_data_fn notify_market_data;",
		"YDListener_notify_order_fn notify_order;",
		"YDListener_notify_failed_order_fn notify_failed_order;",
		"};",
	)

	m := analyzeFixture(t)
	listener := m.Record("YDListener")
	require.NotNil(t, listener)
	for i, meth := range listener.Methods[1:] {
		assert.Equal(t, i+2, meth.Slot, "%s follows the two destructor slots", meth.Native)
	}
}

func TestVTable_MSVCHasOneDestructorSlot(t *testing.T) {
	src := `
decls:
  - kind: class
    name: YDListener
    children:
      - {kind: destructor, name: ~YDListener, virtual: true}
      - {kind: method, name: notifyCaughtUp, virtual: true}
`
	msvc := func(c *common.Config) { c.ABI = common.ABIMSVC }
	m, err := Analyze(mustParse(t, src), testConfig(msvc))
	require.NoError(t, err)

	methods := m.Record("YDListener").Methods
	require.Len(t, methods, 2)
	assert.Equal(t, []string{"deleting_destructor"}, methods[0].SlotNames)
	assert.Equal(t, 1, methods[1].Slot)

	files, err := generateYAML(t, src, msvc)
	require.NoError(t, err)
	assert.NotContains(t, files[FileCHeader], "YDListener_destructor_fn destructor;")
	assert.Contains(t, files[FileCHeader], "YDListener_destructor_fn deleting_destructor;")
}

func mustParse(t *testing.T, src string) *decl.Header {
	t.Helper()
	h, err := decl.Parse([]byte(src))
	require.NoError(t, err)
	return h
}

func TestNotifyLogin(t *testing.T) {
	files := generateFixture(t)
	header, spi, table := files[FileCHeader], files[FileSPI], files[FileTable]

	assert.Contains(t, header,
		"typedef void (*YDListener_notify_login_fn)(YDListenerFat *self, int error_no, int max_order_ref, bool is_monitor);")
	assert.Contains(t, table, ".notify_login = (YDListener_notify_login_fn)ydgen_YDListener_notify_login,")

	assert.Contains(t, spi, "NotifyLogin(errorNo int32, maxOrderRef int32, isMonitor bool)")
	assert.Contains(t, spi, "func (UnimplementedYDListener) NotifyLogin(int32, int32, bool) {}")

	assert.Contains(t, spi, "type YDListenerNotifyLoginPacket struct {")
	assert.Regexp(t, "ErrorNo\\s+int32\\s+`json:\"error_no\"`", spi)
	assert.Regexp(t, "MaxOrderRef\\s+int32\\s+`json:\"max_order_ref\"`", spi)
	assert.Regexp(t, "IsMonitor\\s+bool\\s+`json:\"is_monitor\"`", spi)
	assert.Regexp(t, `func \(p \*YDListenerNotifyLoginPacket\) Apply\(l YDListener\) \{\s*l\.NotifyLogin\(p\.ErrorNo, p\.MaxOrderRef, p\.IsMonitor\)\s*\}`, spi)

	tramp := funcText(t, spi, "ydgen_YDListener_notify_login")
	assert.Contains(t, spi, "//export ydgen_YDListener_notify_login\n")
	assert.Contains(t, tramp, "(self *C.YDListenerFat, errorNo C.int, maxOrderRef C.int, isMonitor C.bool)")
	assert.Regexp(t, `ErrorNo:\s+int32\(errorNo\),`, tramp)
	assert.Regexp(t, `IsMonitor:\s+bool\(isMonitor\),`, tramp)
	assert.Contains(t, tramp, "deliverYDListener(self, &YDListenerNotifyLoginPacket{")
}

func TestEventKindsNumberCallbacksInOrder(t *testing.T) {
	spi := generateFixture(t)[FileSPI]

	assert.Regexp(t, `YDListenerNotifyReadyForLogin\s+YDListenerEventKind = 1`, spi)
	assert.Regexp(t, `YDListenerNotifyLogin\s+YDListenerEventKind = 2`, spi)
	assert.Regexp(t, `YDListenerNotifyFailedOrder\s+YDListenerEventKind = 7`, spi)
	assert.Contains(t, spi, "case YDListenerNotifyLogin:\n\t\treturn \"NotifyLogin\"")
	assert.Regexp(t, `func \(\*YDListenerNotifyFinishInitPacket\) Apply\(l YDListener\) \{\s*l\.NotifyFinishInit\(\)\s*\}`, spi)
}

func TestTrampolineAssertsBeforeDereference(t *testing.T) {
	m := analyzeFixture(t)
	var notifyOrder *Method
	for _, meth := range m.Record("YDListener").Methods {
		if meth.Native == "notifyOrder" {
			notifyOrder = meth
		}
	}
	require.NotNil(t, notifyOrder)
	order, instrument := notifyOrder.Params[0], notifyOrder.Params[1]

	tramp := funcText(t, generateFixture(t)[FileSPI], "ydgen_YDListener_notify_order")
	assertOrder(t, tramp,
		`bridge.MustNotNil(unsafe.Pointer(self), "YDListener::notifyOrder", "this")`,
		`bridge.MustNotNil(unsafe.Pointer(`+order.GoName+`), "YDListener::notifyOrder", "pOrder")`,
		`bridge.MustNotNil(unsafe.Pointer(`+instrument.GoName+`), "YDListener::notifyOrder", "pInstrument")`,
		"*"+order.GoName+",",
		"*"+instrument.GoName+",",
	)
}

func TestStreamUsesQueueConfig(t *testing.T) {
	spi := generateFixture(t, func(c *common.Config) {
		c.Queue = common.QueueConfig{Capacity: 64, Overflow: common.DropNewest}
	})[FileSPI]

	assert.Contains(t, spi, "bridge.WithCapacity(64), bridge.WithOverflow(bridge.DropNewest)")
	assert.Contains(t, spi, "func NewYDListenerStream(opts ...bridge.Option) *YDListenerStream {")
	assert.Contains(t, spi, "if sink, ok := target.(bridge.Sink[YDListenerEvent]); ok {")
	assert.Contains(t, spi, "bridge.Copy(")

	defaults := generateFixture(t)[FileSPI]
	assert.Contains(t, defaults, "bridge.WithCapacity(0), bridge.WithOverflow(bridge.DropOldest)")
}

func TestInsertOrderOverloads(t *testing.T) {
	files := generateFixture(t)

	assertOrder(t, files[FileCHeader],
		"struct YDApiVTable {",
		"YDApi_insert_order_fn insert_order;",
		"YDApi_insert_order1_fn insert_order1;",
	)
	api := files[FileAPI]
	assert.Contains(t, api, "func (a *YDApi) InsertOrder(")
	assert.Contains(t, api, "func (a *YDApi) InsertOrder1(")
	assert.Contains(t, funcText(t, api, "(a *YDApi) InsertOrder1"), "C.YDDirection(direction)")

	m := analyzeFixture(t)
	var overloads []int
	for _, meth := range m.Record("YDApi").Methods {
		if meth.Native == "insertOrder" {
			overloads = append(overloads, meth.Overload)
		}
	}
	assert.Equal(t, []int{0, 1}, overloads)
}

func TestOverloadsRejectedUnderMSVC(t *testing.T) {
	_, err := Analyze(loadFixture(t), testConfig(func(c *common.Config) { c.ABI = common.ABIMSVC }))
	require.Error(t, err)
	d, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.KindLayout, d.Kind)
	assert.Equal(t, []string{"YDApi", "insertOrder"}, d.Path)
}

func TestLoginWrapper(t *testing.T) {
	login := funcText(t, generateFixture(t)[FileAPI], "(a *YDApi) Login")

	assert.True(t, strings.HasPrefix(login, "func (a *YDApi) Login(username string, password string, "))
	assert.Contains(t, login, "Login(username string, password string, appID string, authCode string) bool {")
	assert.Contains(t, login, "cUsername := C.CString(username)")
	assert.Contains(t, login, "defer C.free(unsafe.Pointer(cUsername))")
	assert.Contains(t, login, "cPassword := C.CString(password)")
	assert.Equal(t, 4, strings.Count(login, "C.CString("))
	assert.Equal(t, 4, strings.Count(login, "defer C.free("))
	assert.Contains(t, login, "ret := C.ydgen_YDApi_login(a.ptr, cUsername, cPassword, ")
	assert.Contains(t, login, "return bool(ret)")
}

func TestSessionStartRegistersListener(t *testing.T) {
	m := analyzeFixture(t)
	api := m.Record("YDApi")
	require.NotNil(t, api.Start)
	assert.Equal(t, "start", api.Start.Native)
	assert.Same(t, m.Record("YDListener"), api.Start.Listener)

	p := api.Start.Params[0]
	start := funcText(t, generateFixture(t)[FileAPI], "(a *YDApi) Start")
	assertOrder(t, start,
		p.Local+" := newYDListenerFat("+p.GoName+")",
		"a.listeners = append(a.listeners, unsafe.Pointer("+p.Local+"))",
		"C.ydgen_YDApi_start(a.ptr, "+p.Local+")",
	)
}

func TestDestructorHasNoWrapper(t *testing.T) {
	files := generateFixture(t)

	assert.NotContains(t, strings.ToLower(files[FileAPI]), "destructor")
	assert.NotContains(t, files[FileCHeader], "ydgen_YDApi_destructor(")
	assert.Contains(t, files[FileCHeader], "YDApi_destructor_fn deleting_destructor;")
	assert.Contains(t, files[FileTable], "static void ydgen_YDListener_deleting_destructor(YDListenerFat *self) {\n\t(void)self;\n}")
	assert.Contains(t, files[FileTable], ".deleting_destructor = ydgen_YDListener_deleting_destructor,")
}

func TestActiveHeaderShims(t *testing.T) {
	header := generateFixture(t)[FileCHeader]

	assert.Contains(t, header, "struct YDApi {\n\tconst YDApiVTable *vtable;\n};")
	assert.Contains(t, header, "static inline bool ydgen_YDApi_start(YDApi *self, YDListenerFat *p_listener) {\n\treturn self->vtable->start(self, p_listener);\n}")
	assert.Contains(t, header, "static inline void ydgen_YDApi_disconnect(YDApi *self) {\n\tself->vtable->disconnect(self);\n}")
	assert.Contains(t, header, "static inline void ydgen_YDApi_subscribe_all(YDApi *self, const char **names) {")
}

func TestDataRecordsAndEnums(t *testing.T) {
	files := generateFixture(t)
	header, bindings := files[FileCHeader], files[FileBinding]

	assertOrder(t, header,
		"typedef int YDDirection;",
		"typedef struct YDOrder YDOrder;",
		"struct YDInputOrder {",
		"struct YDOrder {",
	)
	start := strings.Index(header, "struct YDOrder {")
	order := header[start : start+strings.Index(header[start:], "};")]
	assertOrder(t, order,
		"\tYDDirection Direction;",
		"\tint OrderRef;",
		"\tint InstrumentRef;",
		"\tchar InsertTime[16];",
	)
	assert.Contains(t, header, "\tchar InstrumentID[32];")
	assert.Contains(t, header, "\tlong long Volume;")

	assert.Contains(t, bindings, "type YDOrder = C.YDOrder")
	assert.Contains(t, bindings, "type YDSystemParam = C.YDSystemParam")
	assert.Regexp(t, `YD_D_Sell\s+YDDirection = 1`, bindings)
	assert.Contains(t, bindings, "type YDApi_ConnectionState int32")
	assert.Regexp(t, `YDApi_LoggedIn\s+YDApi_ConnectionState = 2`, bindings)
	assert.Contains(t, bindings, "func newCStringArray(values []string) *cStringArray {")
}

func TestFreeFunctions(t *testing.T) {
	files := generateFixture(t)

	assert.Contains(t, files[FileCHeader], "YDApi *ydgen_makeYDApi(const char *config_filename);")
	assert.Contains(t, files[FileCHeader], "const char *ydgen_getYDVersion(void);")

	shim := files[FileShim]
	assertOrder(t, shim, `#include "ydApi.h"`, `extern "C" {`)
	assert.Contains(t, shim, "YDApi *ydgen_makeYDApi(const char *config_filename) {\n\treturn makeYDApi(config_filename);\n}")
	assert.Contains(t, shim, "const char *ydgen_getYDVersion(void) {\n\treturn getYDVersion();\n}")

	api := files[FileAPI]
	assert.Contains(t, api, "func MakeYDApi(configFilename string) *YDApi {")
	assert.Contains(t, api, "func GetYDVersion() string {")
	assert.Contains(t, api, "func (a *YDApi) GetInstrumentByID(instrumentID string) *YDInstrument {")
	assert.Contains(t, api, "ret := C.ydgen_makeYDApi(cConfigFilename)")
	assert.Contains(t, api, "return wrapYDApi(ret)")
	assert.Contains(t, api, "return C.GoString(ret)")
}

func TestUnknownTypeIsFatal(t *testing.T) {
	_, err := generateYAML(t, `
decls:
  - kind: class
    name: YDListener
    children:
      - kind: method
        name: notifyTrade
        virtual: true
        children:
          - {kind: parameter, name: pTrade, type: "const YDTrade *"}
`)
	require.Error(t, err)

	d, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.KindUnknownType, d.Kind)
	assert.Equal(t, "const YDTrade *", d.Type)
	assert.Equal(t, []string{"YDListener", "notifyTrade", "pTrade"}, d.Path)
	assert.Contains(t, err.Error(), "YDTrade")
}

func TestUnknownKindIsFatal(t *testing.T) {
	_, err := generateYAML(t, `
decls:
  - kind: class
    name: YDApi
    children:
      - {kind: constructor, name: YDApi}
      - {kind: method, name: disconnect, virtual: true}
`)
	require.Error(t, err)
	assert.True(t, isKind(err, diag.KindUnknownKind))
	assert.Contains(t, err.Error(), `"constructor"`)
}

func isKind(err error, kind diag.Kind) bool {
	d, ok := diag.As(err)
	return ok && d.Kind == kind
}

func TestAnalysisRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind diag.Kind
	}{
		{
			name: "callback with a result",
			src: `
decls:
  - kind: class
    name: YDListener
    children:
      - {kind: method, name: notifyLogin, virtual: true, result: int}
`,
			kind: diag.KindUnsupported,
		},
		{
			name: "callback with data members",
			src: `
decls:
  - kind: class
    name: YDListener
    children:
      - {kind: field, name: count, type: int}
      - {kind: method, name: notifyLogin, virtual: true}
`,
			kind: diag.KindLayout,
		},
		{
			name: "non-virtual method on a dispatch record",
			src: `
decls:
  - kind: class
    name: YDApi
    children:
      - {kind: method, name: disconnect}
`,
			kind: diag.KindUnsupported,
		},
		{
			name: "names colliding after case conversion",
			src: `
decls:
  - kind: class
    name: YDListener
    children:
      - {kind: method, name: notifyLogin, virtual: true}
      - {kind: method, name: notify_login, virtual: true}
`,
			kind: diag.KindNameCollision,
		},
		{
			name: "duplicate parameter names",
			src: `
decls:
  - kind: class
    name: YDListener
    children:
      - kind: method
        name: notifyLogin
        virtual: true
        children:
          - {kind: parameter, name: errorNo, type: int}
          - {kind: parameter, name: errorNo, type: int}
`,
			kind: diag.KindNameCollision,
		},
		{
			name: "callback pointer outside the session start",
			src: `
decls:
  - kind: class
    name: YDListener
    children:
      - {kind: method, name: notifyLogin, virtual: true}
  - kind: class
    name: YDApi
    children:
      - kind: method
        name: attach
        virtual: true
        children:
          - {kind: parameter, name: listener, type: "YDListener *"}
`,
			kind: diag.KindUnsupported,
		},
		{
			name: "string array in a callback",
			src: `
decls:
  - kind: class
    name: YDListener
    children:
      - kind: method
        name: notifyNames
        virtual: true
        children:
          - {kind: parameter, name: names, type: "const char **"}
`,
			kind: diag.KindUnsupported,
		},
		{
			name: "overriding an inherited virtual",
			src: `
decls:
  - kind: class
    name: YDListener
    children:
      - {kind: method, name: notifyLogin, virtual: true}
  - kind: class
    name: YDExtendedListener
    children:
      - {kind: base, name: YDListener}
      - {kind: method, name: notifyLogin, virtual: true}
`,
			kind: diag.KindLayout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := generateYAML(t, tt.src)
			require.Error(t, err)
			d, ok := diag.As(err)
			require.True(t, ok, "want a diagnostic, got %v", err)
			assert.Equal(t, tt.kind, d.Kind, err.Error())
		})
	}
}

func TestInheritedSlotsComeFirst(t *testing.T) {
	m, err := Analyze(mustParse(t, `
decls:
  - kind: class
    name: YDListener
    children:
      - {kind: destructor, name: ~YDListener, virtual: true}
      - {kind: method, name: notifyLogin, virtual: true}
  - kind: class
    name: YDExtendedListener
    children:
      - {kind: base, name: YDListener}
      - {kind: destructor, name: ~YDExtendedListener, virtual: true}
      - {kind: method, name: notifyChangePassword, virtual: true}
`), testConfig())
	require.NoError(t, err)

	ext := m.Record("YDExtendedListener")
	require.Len(t, ext.Methods, 3)
	assert.True(t, ext.Methods[0].Destructor)
	assert.Equal(t, "notifyLogin", ext.Methods[1].Native)
	assert.Equal(t, "YDListener", ext.Methods[1].Declaring)
	assert.Same(t, ext, ext.Methods[1].Owner)
	assert.Equal(t, "notifyChangePassword", ext.Methods[2].Native)
	assert.Equal(t, 3, ext.Methods[2].Slot)
}

func TestSkippedMethods(t *testing.T) {
	m := analyzeFixture(t, func(c *common.Config) {
		c.SkippedMethods = []string{"YDApi::disconnect"}
		c.SkipNameRegex = []string{"^notifyCaught"}
	})
	for _, meth := range m.Record("YDApi").Methods {
		assert.NotEqual(t, "disconnect", meth.Native)
	}
	for _, meth := range m.Record("YDListener").Methods {
		assert.NotEqual(t, "notifyCaughtUp", meth.Native)
	}
}

func TestBorrowedPayloadField(t *testing.T) {
	files, err := generateYAML(t, `
decls:
  - {kind: class, name: YDAccount}
  - kind: class
    name: YDListener
    children:
      - kind: method
        name: notifyAccount
        virtual: true
        children:
          - {kind: parameter, name: account, type: "const YDAccount *"}
`)
	require.NoError(t, err)
	assert.Regexp(t, "Account\\s+\\*YDAccount\\s+`json:\"account\"`\\s+// borrowed: valid only while the callback runs", files[FileSPI])
	_, hasAPI := files[FileAPI]
	assert.False(t, hasAPI, "no active records and no functions")
	_, hasShim := files[FileShim]
	assert.False(t, hasShim)
}

func TestPackedRecord(t *testing.T) {
	files, err := generateYAML(t, `
decls:
  - kind: struct
    name: YDQuote
    packed: true
    children:
      - {kind: field, name: Flag, type: char}
      - {kind: field, name: Price, type: double}
`)
	require.NoError(t, err)
	assert.Contains(t, files[FileCHeader], "#pragma pack(push, 1)\nstruct YDQuote {\n\tchar Flag;\n\tdouble Price;\n};\n#pragma pack(pop)")
}

func TestLongFollowsABI(t *testing.T) {
	src := `
decls:
  - {kind: struct, name: S, children: [{kind: field, name: n, type: long}]}
  - kind: class
    name: YDListener
    children:
      - kind: method
        name: notifyCount
        virtual: true
        children:
          - {kind: parameter, name: count, type: long}
`
	files, err := generateYAML(t, src)
	require.NoError(t, err)
	assert.Contains(t, files[FileSPI], "NotifyCount(count int64)")

	files, err = generateYAML(t, src, func(c *common.Config) { c.ABI = common.ABIMSVC })
	require.NoError(t, err)
	assert.Contains(t, files[FileSPI], "NotifyCount(count int32)")
}

func TestStale(t *testing.T) {
	cfg := testConfig()
	files, err := NewGenerator(cfg, loadFixture(t)).Generate()
	require.NoError(t, err)

	dir := t.TempDir()
	stale, err := Stale(dir, files)
	require.NoError(t, err)
	assert.Len(t, stale, len(files), "nothing written yet")

	require.NoError(t, common.WriteFiles(dir, files))
	stale, err = Stale(dir, files)
	require.NoError(t, err)
	assert.Empty(t, stale)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileSPI), []byte("package yd\n"), 0o644))
	stale, err = Stale(dir, files)
	require.NoError(t, err)
	assert.Equal(t, []string{FileSPI}, stale)
}

func TestCgoFlags(t *testing.T) {
	files := generateFixture(t, func(c *common.Config) {
		c.Cgo = common.CgoConfig{
			CPPFlags: "-I${SRCDIR}/include",
			CXXFlags: "-std=c++11",
			LDFlags:  "-L${SRCDIR}/lib -lyd",
		}
	})

	assertOrder(t, files[FileBinding],
		"#cgo CPPFLAGS: -I${SRCDIR}/include\n",
		"#cgo CXXFLAGS: -std=c++11\n",
		"#cgo LDFLAGS: -L${SRCDIR}/lib -lyd\n",
		`#include "yd_bindings.h"`,
	)
	assert.NotContains(t, files[FileBinding], "#cgo CFLAGS")
	assert.NotContains(t, files[FileAPI], "#cgo", "flags are declared once per package")
}
