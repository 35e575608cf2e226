package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func Home() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Plot Twist</title>
    <link rel="stylesheet" href="/static/styles.css"/>
  </head>
  <body>
    <main class="shell">
      <header class="hero">
        <span class="tag">Plot Twist</span>
        <h1>Write together. Expect chaos.</h1>
        <p>Start a story with friends and let the chaos agent twist it.</p>
      </header>

      <section class="panel">
        <div>
          <h2>Create a room</h2>
          <p>Pick a nickname and share the room link with your players.</p>
        </div>
        <form id="createForm" class="create-form">
          <input name="nickname" placeholder="Nickname" autocomplete="off" required/>
          <select name="game_mode">
            <option value="freeform">Freeform</option>
            <option value="themed">Themed</option>
          </select>
          <input name="theme" placeholder="Theme (themed mode only)" autocomplete="off"/>
          <button type="submit" class="primary">Create room</button>
        </form>
        <div id="createResult" class="result"></div>
      </section>

      <section class="panel">
        <div>
          <h2>Join a room</h2>
          <p>Enter the room code from your host and a nickname.</p>
        </div>
        <form id="joinForm" class="join-form">
          <input name="room_id" placeholder="Room code" autocomplete="off" required/>
          <input name="nickname" placeholder="Nickname" autocomplete="off" required/>
          <button type="submit" class="secondary">Join room</button>
        </form>
        <div id="joinResult" class="result"></div>
      </section>
    </main>

    <script>
      const createForm = document.getElementById("createForm");
      const createResult = document.getElementById("createResult");
      const joinForm = document.getElementById("joinForm");
      const joinResult = document.getElementById("joinResult");

      createForm.addEventListener("submit", async (event) => {
        event.preventDefault();
        createResult.textContent = "Creating room...";
        const data = Object.fromEntries(new FormData(createForm));
        const res = await fetch("/api/rooms", {
          method: "POST",
          headers: { "Content-Type": "application/json" },
          body: JSON.stringify({
            nickname: data.nickname,
            game_mode: data.game_mode,
            theme: data.theme || undefined,
          }),
        });
        const body = await res.json();
        if (!res.ok) {
          createResult.textContent = body.error || "Failed to create room.";
          return;
        }
        createResult.textContent = "Room " + body.room_id + " created.";
      });

      joinForm.addEventListener("submit", async (event) => {
        event.preventDefault();
        joinResult.textContent = "Joining room...";
        const data = Object.fromEntries(new FormData(joinForm));
        const res = await fetch("/api/rooms/" + encodeURIComponent(data.room_id) + "/join", {
          method: "POST",
          headers: { "Content-Type": "application/json" },
          body: JSON.stringify({ nickname: data.nickname }),
        });
        const body = await res.json();
        if (!res.ok) {
          joinResult.textContent = body.error || "Failed to join room.";
          return;
        }
        joinResult.textContent = "Joined as " + data.nickname + ".";
      });
    </script>
  </body>
</html>`)
		return nil
	})
}
