package models

const (
	PDFMimeType  = "application/pdf"
	XLSXMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// AskDisplayName is the remote display name used for question uploads.
	AskDisplayName = "Pergunta PDF"

	RenderErrorFormat = "Erro ao renderizar o PDF: %v"
	AskErrorFormat    = "Erro ao consultar o modelo: %v"
)

var (
	ExtractFieldsPromptTemplate = `Por favor, extraia as informações do documento e me forneça em formato de tabela Markdown. A tabela deve incluir as seguintes informações: %s. Retorne apenas a tabela, sem nunhum texto acima ou abaixo. Retorne sempre em formato colunar.`

	ExtractDefaultPrompt = `Por favor, extraia as informações do documento e me forneça em formato de tabela Markdown. Extraia as principais informações desta invoice. Retorne apenas a tabela, sem nunhum texto acima ou abaixo. Retorne apenas a tabela, sem nunhum texto acima ou abaixo. Retorne sempre em formato colunar.`

	AskInstruction = "Sempre responda em português, mesmo que a pergunta ou o documento estejam em outro idioma.\n"

	// DocumentContextTemplate wraps locally extracted document text for
	// backends that cannot receive the PDF itself.
	DocumentContextTemplate = `<document>
%s
</document>
%s`
)
