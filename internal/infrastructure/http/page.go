package http

// indexHTML is the chat UI. It posts form-encoded messages to /ask and
// restores the session's turns from /history on load.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{if .Name}}{{.Name}} {{end}}FAQ Assistant</title>
    <style>
        body { font-family: system-ui, sans-serif; background: #f4f5f7; margin: 0; }
        .container { max-width: 720px; margin: 0 auto; padding: 24px; }
        #messages { background: #fff; border-radius: 8px; padding: 16px; height: 60vh; overflow-y: auto; }
        .message { margin: 8px 0; padding: 8px 12px; border-radius: 8px; max-width: 80%; white-space: pre-wrap; }
        .user { background: #dbeafe; margin-left: auto; }
        .bot { background: #eef0f3; }
        form { display: flex; gap: 8px; margin-top: 12px; }
        input { flex: 1; padding: 10px; border-radius: 6px; border: 1px solid #ccc; }
        button { padding: 10px 18px; border: 0; border-radius: 6px; background: #2563eb; color: #fff; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>{{if .Name}}{{.Name}} {{end}}FAQ Assistant</h1>
        </header>
        <div id="messages"></div>
        <form id="ask-form">
            <input type="text" id="message" name="message" placeholder="Ask a question..." autocomplete="off">
            <button type="submit">Send</button>
        </form>
    </div>

    <script>
        const messages = document.getElementById('messages');

        function add(role, text) {
            const div = document.createElement('div');
            div.className = 'message ' + role;
            div.textContent = text;
            messages.appendChild(div);
            messages.scrollTop = messages.scrollHeight;
        }

        fetch('/history').then(r => r.json()).then(data => {
            (data.history || []).forEach(m => add(m.role, m.content));
        });

        document.getElementById('ask-form').addEventListener('submit', async (e) => {
            e.preventDefault();
            const input = document.getElementById('message');
            const text = input.value.trim();
            if (!text) return;
            add('user', text);
            input.value = '';

            try {
                const resp = await fetch('/ask', {
                    method: 'POST',
                    headers: { 'Content-Type': 'application/x-www-form-urlencoded' },
                    body: new URLSearchParams({ message: text }),
                });
                const data = await resp.json();
                add('bot', data.reply);
            } catch (err) {
                add('bot', 'Connection error');
            }
        });
    </script>
</body>
</html>`
