// Package translator adapts goshadertranslator to shader.Translator so
// effect sources can be written once in WebGL2 GLSL and compiled on desktop
// GL 4.1 or GLES 3.
package translator

import (
	"context"
	"fmt"
	"sync"

	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/shader"
	gst "github.com/richinsley/goshadertranslator"
)

var (
	once   sync.Once
	shared *gst.ShaderTranslator
	errNew error
)

// sharedTranslator starts the translator runtime once per process.
func sharedTranslator() (*gst.ShaderTranslator, error) {
	once.Do(func() {
		shared, errNew = gst.NewShaderTranslator(context.Background())
	})
	return shared, errNew
}

// Translator implements shader.Translator.
type Translator struct {
	t      *gst.ShaderTranslator
	isGLES bool
}

// New returns a translator targeting GLSL 410, or ESSL when isGLES is set.
func New(isGLES bool) (*Translator, error) {
	t, err := sharedTranslator()
	if err != nil {
		return nil, fmt.Errorf("starting shader translator: %w", err)
	}
	return &Translator{t: t, isGLES: isGLES}, nil
}

func stageName(stage graphics.ShaderStage) string {
	if stage == graphics.StageVertex {
		return "vertex"
	}
	return "fragment"
}

// Translate converts WebGL2 source. Uniform renames made by the translator
// are reported so programs can be addressed by their declared names.
func (tr *Translator) Translate(source string, stage graphics.ShaderStage) (shader.Translation, error) {
	out := gst.OutputFormatGLSL410
	if tr.isGLES {
		out = gst.OutputFormatESSL
	}
	res, err := tr.t.TranslateShader(source, stageName(stage), gst.ShaderSpecWebGL2, out)
	if err != nil {
		return shader.Translation{}, fmt.Errorf("%s shader translation failed: %w", stageName(stage), err)
	}
	names := make(map[string]string, len(res.Variables))
	for name, v := range res.Variables {
		if v.MappedName != "" && v.MappedName != name {
			names[name] = v.MappedName
		}
	}
	return shader.Translation{Code: res.Code, Names: names}, nil
}
