package handlers

const outputIndexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>XML feeds</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
li { margin: 0.25rem 0; }
</style>
</head>
<body>
<h1>XML feeds</h1>
{{if .Files}}
<ul>
{{range .Files}}<li><a href="/output/{{.}}">{{.}}</a> (<a href="/download/{{.}}">download</a>)</li>
{{end}}</ul>
{{else}}
<p>No files.</p>
{{end}}
</body>
</html>
`
