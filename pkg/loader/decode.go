package loader

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"

	v1 "github.com/giantswarm/chronosphere-sync/api/v1"
)

// rawDocument is one YAML document of an asset file and its position in the file.
type rawDocument struct {
	index int
	doc   *v1.Document
	err   error
}

// splitDocuments decodes a multi-document YAML stream. Empty documents are dropped, documents that
// fail to decode are returned with err set so the file can still report every broken document.
// The returned error is set only when the stream itself cannot be read.
func splitDocuments(data []byte) ([]rawDocument, error) {
	reader := utilyaml.NewYAMLReader(bufio.NewReader(bytes.NewReader(data)))

	var docs []rawDocument
	for index := 0; ; index++ {
		chunk, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}

		jsonData, err := yaml.YAMLToJSON(chunk)
		if err != nil {
			docs = append(docs, rawDocument{index: index, err: err})
			continue
		}
		if isEmpty(jsonData) {
			continue
		}

		var doc v1.Document
		if err := yaml.UnmarshalStrict(chunk, &doc); err != nil {
			docs = append(docs, rawDocument{index: index, err: err})
			continue
		}
		docs = append(docs, rawDocument{index: index, doc: &doc})
	}
}

func isEmpty(jsonData []byte) bool {
	trimmed := bytes.TrimSpace(jsonData)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
