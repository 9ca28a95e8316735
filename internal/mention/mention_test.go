package mention

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full name", "Ask @Jane_Doe about it", "Ask <b><u>Jane Doe</u></b> about it"},
		{"single name", "@Max hat Dienst", "<b><u>Max</u></b> hat Dienst"},
		{"three segments", "mit @Anna_Maria_Schulz.", "mit <b><u>Anna Maria Schulz</u></b>."},
		{"two mentions", "@A_B und @C_D", "<b><u>A B</u></b> und <b><u>C D</u></b>"},
		{"umlauts", "Sprich mit @Jörg_Müller.", "Sprich mit <b><u>Jörg Müller</u></b>."},
		{"eszett", "@Ömer_Weiß kocht", "<b><u>Ömer Weiß</u></b> kocht"},
		{"trailing underscore", "@Jane_ fragen", "<b><u>Jane</u></b>_ fragen"},
		{"bare at", "Treffen @ 10 Uhr", "Treffen @ 10 Uhr"},
		{"punctuation after at", "@! nichts", "@! nichts"},
		{"no mentions", "Keine Details", "Keine Details"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.in))
		})
	}
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []Segment{
		{Text: "<b>Achtung</b> "},
		{Text: "Jörg Müller", Mention: true},
		{Text: " & @ 3 < 4"},
	}, Split("<b>Achtung</b> @Jörg_Müller & @ 3 < 4"))

	assert.Equal(t, []Segment{{Text: "Max", Mention: true}}, Split("@Max"))
	assert.Nil(t, Split(""))
}

func TestToken(t *testing.T) {
	assert.Equal(t, "Jane_Doe", Token("Jane", "Doe"))
	assert.Equal(t, "Anna_Maria_Schulz", Token(" Anna Maria ", "Schulz"))
	assert.Equal(t, "Max", Token("Max", ""))
}

func TestTokensRoundTrip(t *testing.T) {
	for _, name := range [][2]string{{"Jane", "Doe"}, {"Jörg", "Müller"}, {"Zoë", "Ångström"}} {
		tok := Token(name[0], name[1])
		assert.Equal(t, []string{tok}, Tokens("Ask @"+tok+" about it"))
		assert.Equal(t, name[0]+" "+name[1], Display(tok))
		assert.Equal(t, "<b><u>"+name[0]+" "+name[1]+"</u></b>", Render("@"+tok))
	}
}
