package server

// graphiqlPage is the in-browser IDE served on GET requests that accept
// HTML. Assets are loaded from the esm.sh CDN.
var graphiqlPage = []byte(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>GraphiQL</title>
    <style>
      body { margin: 0; }
      #graphiql { height: 100vh; }
    </style>
    <link rel="stylesheet" href="https://esm.sh/graphiql/dist/style.css" />
  </head>
  <body>
    <div id="graphiql">Loading&hellip;</div>
    <script type="module">
      import React from 'https://esm.sh/react@18';
      import ReactDOM from 'https://esm.sh/react-dom@18/client';
      import { GraphiQL } from 'https://esm.sh/graphiql';
      import { createGraphiQLFetcher } from 'https://esm.sh/@graphiql/toolkit';

      const fetcher = createGraphiQLFetcher({ url: window.location.href });
      ReactDOM.createRoot(document.getElementById('graphiql')).render(
        React.createElement(GraphiQL, { fetcher }),
      );
    </script>
  </body>
</html>
`)
