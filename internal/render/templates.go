package render

import "github.com/aymerick/raymond"

// chatCSS is the WhatsApp-like stylesheet shared by all HTML variants.
const chatCSS = `
:root{
  --bg:#e5ddd5;
  --bubble-me:#DCF8C6;
  --bubble-other:#EAF7E0;
  --text:#111;
  --muted:#666;
  --shadow: 0 1px 0 rgba(0,0,0,.06);
}
html,body{height:100%;margin:0;padding:0;}
body{
  font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,Helvetica,Arial,sans-serif;
  background: var(--bg);
  color: var(--text);
  font-size: 18px;
  line-height: 1.35;
}
.wrap{max-width: 980px; margin: 0 auto; padding: 18px 12px 28px;}
.header{
  background: rgba(255,255,255,.75);
  border-radius: 14px;
  padding: 14px 16px;
  box-shadow: var(--shadow);
  margin-bottom: 14px;
}
.h-title{font-weight:700; font-size: 24px; margin:0 0 6px;}
.h-meta{margin:0; color: var(--muted); font-size: 15px; line-height:1.4;}
.day{display:flex; justify-content:center; margin: 16px 0 10px;}
.day > span{
  background: rgba(255,255,255,.65);
  color: #333;
  border-radius: 999px;
  padding: 6px 12px;
  font-size: 14px;
  box-shadow: var(--shadow);
}
.row{display:flex; margin: 10px 0; width:100%;}
.row.me{justify-content:flex-end;}
.row.other{justify-content:flex-start;}
.bubble{
  max-width: 78%;
  min-width: 220px;
  padding: 10px 12px 8px;
  border-radius: 18px;
  box-shadow: var(--shadow);
  position:relative;
  overflow:hidden;
}
.bubble.me{background: var(--bubble-me);}
.bubble.other{background: var(--bubble-other);}
.name{font-weight: 700; margin: 0 0 8px; font-size: 18px; opacity: .9;}
.text{white-space: normal; word-wrap: break-word;}
.meta{margin-top: 10px; text-align: right; font-size: 14px; color: #444; opacity: .9; line-height: 1.1;}
.media{margin-top: 10px; border-radius: 14px; overflow:hidden; background: rgba(255,255,255,.35);}
.media img{display:block; width:100%; height:auto;}
.preview{
  margin-top: 10px;
  border-radius: 14px;
  overflow:hidden;
  background: rgba(255,255,255,.55);
  border: 1px solid rgba(0,0,0,.06);
}
.preview a{color: inherit; text-decoration:none; display:block;}
.preview .pimg img{width:100%;height:auto;display:block;}
.preview .pbody{padding:10px 12px;}
.preview .ptitle{font-weight:700; margin:0 0 4px; font-size: 16px;}
.preview .pdesc{margin:0; color: var(--muted); font-size: 14px;}
.linkline{margin-top:8px;font-size:15px;color:#2a5db0;word-break:break-all;}
.filelist{margin:0;padding-left:20px;}
`

const chatPageTemplate = `<!doctype html>
<html lang="de">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{Title}}</title>
<style>` + chatCSS + `</style>
</head>
<body>
<div class="wrap">
<div class="header">
<p class="h-title">{{Title}}</p>
<p class="h-meta">Quelle: {{Source}}<br>Export: {{ExportTime}}<br>Nachrichten: {{MessageCount}}</p>
</div>
{{#each Days}}
<div class="day"><span>{{Label}}</span></div>
{{#each Rows}}
<div class="row {{#if Me}}me{{else}}other{{/if}}">
<div class="bubble {{#if Me}}me{{else}}other{{/if}}">
<div class="name">{{Author}}</div>
{{#if HasText}}<div class="text">{{Text}}</div>{{/if}}
{{#if Preview}}{{#with Preview}}
<div class="preview"><a href="{{URL}}" target="_blank" rel="noopener">
{{#if ImageSrc}}<div class="pimg"><img alt="" src="{{ImageSrc}}"></div>{{/if}}
<div class="pbody"><p class="ptitle">{{Title}}</p>{{#if Description}}<p class="pdesc">{{Description}}</p>{{/if}}</div>
</a></div>
{{/with}}{{/if}}
{{#if HasLinks}}<div class="linkline">{{#each Links}}<a href="{{this}}" target="_blank" rel="noopener">{{this}}</a><br>{{/each}}</div>{{/if}}
{{#each Media}}<div class="media"><img alt="" src="{{Src}}"></div>{{/each}}
<div class="meta">{{Time}}<br>{{Date}}</div>
</div>
</div>
{{/each}}
{{/each}}
</div>
</body>
</html>
`

const sidecarIndexTemplate = `<!doctype html>
<html lang="de">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{Title}}</title>
<style>` + chatCSS + `</style>
</head>
<body>
<div class="wrap">
<div class="header">
<p class="h-title">{{Title}}</p>
<p class="h-meta">Anhänge: {{AttachmentCount}}</p>
</div>
<div class="bubble other">
<ul class="filelist">
{{#each Attachments}}
<li><a href="{{Href}}">{{Name}}</a></li>
{{/each}}
</ul>
</div>
</div>
</body>
</html>
`

var (
	chatPageTpl     = raymond.MustParse(chatPageTemplate)
	sidecarIndexTpl = raymond.MustParse(sidecarIndexTemplate)
)
