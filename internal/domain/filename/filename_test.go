package filename

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
)

const pageIRI = "https://x/submissions/s1/NABWH_001_SG1_S19_B01_F01_D01_P003.tif"

func TestClassifiers(t *testing.T) {
	assert.True(t, IsPageFile(pageIRI))
	assert.True(t, IsPageFile("NABWH_001_SG1_S19_B01_F01_D01_P003.tiff"))
	assert.False(t, IsPageFile("NABWH_001_SG1_S19_B01_F01_D01_P003.png"))
	assert.False(t, IsPageFile("NABWH_001_SG1_S19_B01_F01_D01_P03.tif"))

	assert.True(t, IsAccessFile("https://x/NABWH_001_SG1_S19_B01_F01_D01_P003_ACCESS.png"))
	assert.False(t, IsAccessFile(pageIRI))

	assert.True(t, IsThumbnailFile("https://x/NABWH_001_SG1_S19_B01_F01_D01_P003_THUMBNAIL.png"))
	assert.False(t, IsThumbnailFile("https://x/NABWH_001_SG1_S19_B01_F01_D01_P003_ACCESS.png"))
}

func TestParsePage(t *testing.T) {
	p, err := ParsePage(pageIRI)
	require.NoError(t, err)
	assert.Equal(t, "NABWH_001_SG1_S19_B01_F01_D01", p.DocID)
	assert.Equal(t, 3, p.Number)
	assert.Equal(t, pageIRI, p.IRI)
}

func TestParsePage_UnderscoreInDirectory(t *testing.T) {
	p, err := ParsePage("https://x/sub_mission/NABWH_001_SG1_S19_B01_F01_D02_P120.tif")
	require.NoError(t, err)
	assert.Equal(t, "NABWH_001_SG1_S19_B01_F01_D02", p.DocID)
	assert.Equal(t, 120, p.Number)
}

func TestParsePage_Invalid(t *testing.T) {
	for _, s := range []string{"https://x/readme.txt", "https://x/A_D01_P001.tif"} {
		_, err := ParsePage(s)
		require.Error(t, err, s)
		assert.True(t, errors.Is(err, domain.ErrNamingConvention), s)
	}
}

func TestDerivativeURLs(t *testing.T) {
	access, err := AccessURL(pageIRI)
	require.NoError(t, err)
	assert.Equal(t, "https://x/submissions/s1/NABWH_001_SG1_S19_B01_F01_D01_P003_ACCESS.png", access)

	thumb, err := ThumbnailURL(pageIRI)
	require.NoError(t, err)
	assert.Equal(t, "https://x/submissions/s1/NABWH_001_SG1_S19_B01_F01_D01_P003_THUMBNAIL.png", thumb)

	_, err = AccessURL("https://x/other.png")
	assert.True(t, errors.Is(err, domain.ErrNamingConvention))
}

func TestPaths(t *testing.T) {
	doc, err := DocumentPath("NABWH_001_SG1_S19_B01_F01_D01")
	require.NoError(t, err)
	assert.Equal(t, "NABWH_001/SG1/S19/BX0001/FL0001/D01", doc)

	folder, err := FolderPath("NABWH_001_SG1_S19_B01_F01_D01")
	require.NoError(t, err)
	assert.Equal(t, "NABWH_001/SG1/S19/BX0001/FL0001", folder)

	_, err = DocumentPath("NABWH_001_SG1_S19_B01_F01")
	assert.True(t, errors.Is(err, domain.ErrNamingConvention))
}

func TestPathParts(t *testing.T) {
	parts, err := PathParts("NABWH_001_SG1_S19_B12_F07_D01_P003.tif")
	require.NoError(t, err)
	assert.Equal(t, []string{"NABWH_001", "SG1", "S19", "BX0012", "FL0007", "D01", "P003"}, parts)

	_, err = PathParts("A_B_C")
	assert.True(t, errors.Is(err, domain.ErrNamingConvention))

	_, err = PathParts("A_1_SG1_S19_B_F01_D01")
	assert.True(t, errors.Is(err, domain.ErrNamingConvention))
}
