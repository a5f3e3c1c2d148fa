// Code generated by templ - DO NOT EDIT.

// templ: version: v0.2.793
package templates

//lint:file-ignore SA4006 This context is only used if a nested component is present.

import "github.com/a-h/templ"
import templruntime "github.com/a-h/templ/runtime"

import "strconv"

// ImportForm is the upload form. The script drives preview, confirm and
// the progress stream through the JSON API.
func ImportForm(maxFileSize int64) templ.Component {
	return templruntime.GeneratedTemplate(func(templ_7745c5c3_Input templruntime.GeneratedComponentInput) (templ_7745c5c3_Err error) {
		templ_7745c5c3_W, ctx := templ_7745c5c3_Input.Writer, templ_7745c5c3_Input.Context
		if templ_7745c5c3_CtxErr := ctx.Err(); templ_7745c5c3_CtxErr != nil {
			return templ_7745c5c3_CtxErr
		}
		templ_7745c5c3_Buffer, templ_7745c5c3_IsBuffer := templruntime.GetBuffer(templ_7745c5c3_W)
		if !templ_7745c5c3_IsBuffer {
			defer func() {
				templ_7745c5c3_BufErr := templruntime.ReleaseBuffer(templ_7745c5c3_Buffer)
				if templ_7745c5c3_Err == nil {
					templ_7745c5c3_Err = templ_7745c5c3_BufErr
				}
			}()
		}
		ctx = templ.InitializeContext(ctx)
		templ_7745c5c3_Var1 := templ.GetChildren(ctx)
		if templ_7745c5c3_Var1 == nil {
			templ_7745c5c3_Var1 = templ.NopComponent
		}
		ctx = templ.ClearChildren(ctx)
		_, templ_7745c5c3_Err = templ_7745c5c3_Buffer.WriteString("<p>Upload a CSV in the <a href=\"/api/import/template\">template layout</a> (max ")
		if templ_7745c5c3_Err != nil {
			return templ_7745c5c3_Err
		}
		var templ_7745c5c3_Var2 string
		templ_7745c5c3_Var2, templ_7745c5c3_Err = templ.JoinStringErrs(strconv.FormatInt(maxFileSize>>20, 10))
		if templ_7745c5c3_Err != nil {
			return templ.Error{Err: templ_7745c5c3_Err, FileName: `import.templ`, Line: 9, Col: 118}
		}
		_, templ_7745c5c3_Err = templ_7745c5c3_Buffer.WriteString(templ.EscapeString(templ_7745c5c3_Var2))
		if templ_7745c5c3_Err != nil {
			return templ_7745c5c3_Err
		}
		_, templ_7745c5c3_Err = templ_7745c5c3_Buffer.WriteString(" MB). Rows are checked first; nothing is written until you confirm.</p><form id=\"upload\"><input type=\"file\" name=\"file\" accept=\".csv\" required> <button>Preview</button></form><div id=\"preview\"></div><div id=\"progress\"></div><script>\n\tconst $=id=>document.getElementById(id);\n\tlet session=null;\n\tfunction esc(s){const d=document.createElement('div');d.textContent=s;return d.innerHTML}\n\tfunction fail(j){$('preview').innerHTML='<div class=\"alert\"><strong>'+esc(j.message)+'</strong><br>'+esc(j.action||'')+' ('+esc(j.code)+')</div>'}\n\t$('upload').onsubmit=async ev=>{\n\t  ev.preventDefault();\n\t  const res=await fetch('/api/import/preview',{method:'POST',body:new FormData(ev.target)});\n\t  const j=await res.json();\n\t  if(!res.ok){fail(j);return}\n\t  session=j.session_id;\n\t  let h='<p><b>'+j.summary.total+'</b> rows: <b>'+j.summary.valid+'</b> valid, <b>'+j.summary.invalid+'</b> invalid.</p>';\n\t  if(j.errors&&j.errors.length){h+='<table><tr><th>Row</th><th>Errors</th></tr>'+j.errors.map(r=>'<tr><td>'+r.row+'</td><td>'+r.errors.map(esc).join('<br>')+'</td></tr>').join('')+'</table>'}\n\t  h+='<p><button id=\"confirm\">Import '+j.summary.valid+' valid rows</button> <button id=\"discard\">Discard</button></p>';\n\t  $('preview').innerHTML=h;\n\t  $('confirm').onclick=confirmImport;\n\t  $('discard').onclick=()=>fetch('/api/import/'+session+'/cancel',{method:'POST'}).then(()=>{$('preview').innerHTML=''});\n\t};\n\tasync function confirmImport(){\n\t  const res=await fetch('/api/import/'+session+'/confirm',{method:'POST',headers:{'Content-Type':'application/json'},body:JSON.stringify({confirmed:true})});\n\t  if(!res.ok){fail(await res.json());return}\n\t  $('preview').innerHTML='<button id=\"cancel\">Cancel import</button>';\n\t  $('cancel').onclick=()=>fetch('/api/import/'+session+'/cancel',{method:'POST'});\n\t  const es=new EventSource('/api/import/'+session+'/progress');\n\t  const show=p=>{$('progress').innerHTML='<p>'+esc(p.phase)+': '+p.processed+' / '+p.total+' ('+p.success+' imported, '+p.failed+' failed)</p>'};\n\t  es.addEventListener('progress',ev=>show(JSON.parse(ev.data)));\n\t  es.addEventListener('complete',ev=>{es.close();show(JSON.parse(ev.data));$('preview').innerHTML=''});\n\t}\n\t</script>")
		if templ_7745c5c3_Err != nil {
			return templ_7745c5c3_Err
		}
		return templ_7745c5c3_Err
	})
}

var _ = templruntime.GeneratedTemplate
