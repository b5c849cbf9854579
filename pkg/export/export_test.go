package export

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"reflect"
	"testing"

	"github.com/lehigh-university-libraries/sroie/pkg/annotation"
	"github.com/lehigh-university-libraries/sroie/pkg/region"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(s *annotation.Store)
		expected string
	}{
		{
			name:     "empty store",
			setup:    func(s *annotation.Store) {},
			expected: "",
		},
		{
			name: "single date",
			setup: func(s *annotation.Store) {
				_ = s.AddAnnotation("Date", region.BoundingBox{XMin: 10, YMin: 20, XMax: 50, YMax: 60}, "2024-01-01")
			},
			expected: "10,20,50,60,DATE: 2024-01-01\n",
		},
		{
			name: "category order then insertion order",
			setup: func(s *annotation.Store) {
				_ = s.AddAnnotation("Total", region.BoundingBox{XMin: 1, YMin: 2, XMax: 3, YMax: 4}, "12.50")
				_ = s.AddAnnotation("Company", region.BoundingBox{XMin: 5, YMin: 6, XMax: 7, YMax: 8}, "ACME")
				_ = s.AddAnnotation("Company", region.BoundingBox{XMin: 9, YMin: 10, XMax: 11, YMax: 12}, "ООО Ромашка")
				_ = s.AddCategory("Tax id")
				_ = s.AddAnnotation("Tax id", region.BoundingBox{XMax: 1, YMax: 1}, "")
			},
			expected: "5,6,7,8,COMPANY: ACME\n" +
				"9,10,11,12,COMPANY: ООО Ромашка\n" +
				"1,2,3,4,TOTAL: 12.50\n" +
				"0,0,1,1,TAX ID: \n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := annotation.NewStore()
			tt.setup(s)
			if got := Text(s); got != tt.expected {
				t.Errorf("Text() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestJSON(t *testing.T) {
	s := annotation.NewStore()
	_ = s.AddAnnotation("Company", region.BoundingBox{XMax: 5, YMax: 5}, "ACME CORP")

	data, err := JSON(s)
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	expected := `{
    "company": [
        "ACME CORP"
    ],
    "date": [],
    "total": [],
    "address": []
}`
	if string(data) != expected {
		t.Errorf("JSON() =\n%s\nwant\n%s", data, expected)
	}
}

func TestJSONEmptyStore(t *testing.T) {
	data, err := JSON(annotation.NewStore("Only"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{\n    \"only\": []\n}" {
		t.Errorf("JSON() = %s", data)
	}
}

func TestJSONLeavesTextUnescaped(t *testing.T) {
	s := annotation.NewStore()
	_ = s.AddAnnotation("Total", region.BoundingBox{}, `Итого <5> & "tip"`)

	data, err := JSON(s)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"Итого <5> & \"tip\""`)) {
		t.Errorf("unexpected escaping: %s", data)
	}
}

func TestJSONLineSeparators(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "line separator", text: "a\u2028b", expected: "\"a\u2028b\""},
		{name: "paragraph separator", text: "a\u2029b", expected: "\"a\u2029b\""},
		{name: "literal backslash before u2028", text: `C:\u2028`, expected: `"C:\\u2028"`},
		{name: "escaped quote and newline", text: "x\"\n\u2028", expected: "\"x\\\"\\n\u2028\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := annotation.NewStore("Total")
			_ = s.AddAnnotation("Total", region.BoundingBox{}, tt.text)

			data, err := JSON(s)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Contains(data, []byte(tt.expected)) {
				t.Errorf("JSON() = %s, want it to contain %s", data, tt.expected)
			}

			var decoded map[string][]string
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("export is not valid JSON: %v", err)
			}
			if decoded["total"][0] != tt.text {
				t.Errorf("round trip = %q, want %q", decoded["total"][0], tt.text)
			}
		})
	}
}

func TestJSONPreservesOrder(t *testing.T) {
	s := annotation.NewStore()
	texts := []string{"first", "second", "third", "second"}
	for _, text := range texts {
		_ = s.AddAnnotation("Total", region.BoundingBox{}, text)
	}
	_ = s.AddAnnotation("Date", region.BoundingBox{}, "2024-01-01")

	data, err := JSON(s)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string][]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not valid json: %v", err)
	}
	if !reflect.DeepEqual(decoded["total"], texts) {
		t.Errorf("total = %v, want %v", decoded["total"], texts)
	}
	if !reflect.DeepEqual(decoded["date"], []string{"2024-01-01"}) {
		t.Errorf("date = %v", decoded["date"])
	}

	// object keys follow category order
	dec := json.NewDecoder(bytes.NewReader(data))
	var keys []string
	if _, err := dec.Token(); err != nil {
		t.Fatal(err)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, tok.(string))
		var skip []string
		if err := dec.Decode(&skip); err != nil {
			t.Fatal(err)
		}
	}
	if !reflect.DeepEqual(keys, []string{"company", "date", "total", "address"}) {
		t.Errorf("keys = %v", keys)
	}
}

func TestJSONCaseCollision(t *testing.T) {
	s := annotation.NewStore()
	_ = s.AddAnnotation("Total", region.BoundingBox{}, "12.50")
	_ = s.AddCategory("TOTAL")
	_ = s.AddAnnotation("TOTAL", region.BoundingBox{}, "99.00")

	data, err := JSON(s)
	if err != nil {
		t.Fatal(err)
	}
	expected := `{
    "company": [],
    "date": [],
    "total": [
        "99.00"
    ],
    "address": []
}`
	if string(data) != expected {
		t.Errorf("JSON() =\n%s\nwant\n%s", data, expected)
	}
}

func TestImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	img.Set(0, 0, color.NRGBA{A: 255})

	first, err := Image(img, 75)
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	second, err := Image(img, 75)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("image export is not deterministic")
	}
	if _, err := jpeg.Decode(bytes.NewReader(first)); err != nil {
		t.Errorf("export is not jpeg: %v", err)
	}

	if _, err := Image(nil, 75); err == nil {
		t.Error("Expected error for missing image")
	}
}

func TestFilenames(t *testing.T) {
	tests := []struct {
		input string
		base  string
	}{
		{input: "receipt.jpg", base: "receipt"},
		{input: "scan.2024.01.png", base: "scan.2024.01"},
		{input: "noext", base: "noext"},
		{input: ".jpg", base: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := BaseName(tt.input); got != tt.base {
				t.Errorf("BaseName() = %q, want %q", got, tt.base)
			}
			if got := TextFilename(tt.input); got != tt.base+".txt" {
				t.Errorf("TextFilename() = %q", got)
			}
			if got := JSONFilename(tt.input); got != tt.base+"_structured.json" {
				t.Errorf("JSONFilename() = %q", got)
			}
			if got := ImageFilename(tt.input); got != tt.base+"_original.jpg" {
				t.Errorf("ImageFilename() = %q", got)
			}
		})
	}
}
