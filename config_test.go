// pdfmill/pdf - support for reading and writing PDF files
// Copyright (C) 2026  The pdfmill authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderOptionsFill(t *testing.T) {
	opt, err := (*ReaderOptions)(nil).fill()
	require.NoError(t, err)
	assert.Equal(t, 100, opt.MaxDepth)
	assert.NotNil(t, opt.Log)
	assert.False(t, opt.Strict)

	opt, err = (&ReaderOptions{MaxDepth: 16, Strict: true}).fill()
	require.NoError(t, err)
	assert.Equal(t, 16, opt.MaxDepth)
	assert.True(t, opt.Strict)

	_, err = (&ReaderOptions{MaxDepth: 5}).fill()
	assert.Error(t, err)
}

func TestWriterOptionsFill(t *testing.T) {
	opt, err := (*WriterOptions)(nil).fill()
	require.NoError(t, err)
	assert.Equal(t, V1_7, opt.Version)
	assert.NotNil(t, opt.Log)

	opt, err = (&WriterOptions{Version: V1_4}).fill()
	require.NoError(t, err)
	assert.Equal(t, V1_4, opt.Version)

	_, err = (&WriterOptions{Encrypt: &EncryptOptions{Scheme: 17}}).fill()
	assert.Error(t, err)
}
